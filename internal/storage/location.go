package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/models"
)

// SetLocation зберігає останню відому позицію користувача в Redis GEO-індексі.
func (s *Service) SetLocation(ctx context.Context, userID string, c geo.Coordinate) error {
	if err := c.Validate(); err != nil {
		return failure.ValidationErr("set location", err.Error())
	}
	return s.Redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      userID,
		Longitude: c.Longitude,
		Latitude:  c.Latitude,
	}).Err()
}

// GetLocation повертає позицію користувача або nil, якщо вона невідома.
func (s *Service) GetLocation(ctx context.Context, userID string) (*geo.Coordinate, error) {
	positions, err := s.positions(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	return positions[userID], nil
}

func (s *Service) positions(ctx context.Context, userIDs []string) (map[string]*geo.Coordinate, error) {
	out := make(map[string]*geo.Coordinate, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	res, err := s.Redis.GeoPos(ctx, geoKey, userIDs...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	for i, p := range res {
		if p == nil {
			continue
		}
		out[userIDs[i]] = &geo.Coordinate{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return out, nil
}

// AddUserToScanning додає користувача до множини тих, хто зараз сканує радар.
func (s *Service) AddUserToScanning(ctx context.Context, userID string) error {
	return s.Redis.SAdd(ctx, scanningKey, userID).Err()
}

// RemoveUserFromScanning видаляє користувача з множини сканування.
func (s *Service) RemoveUserFromScanning(ctx context.Context, userID string) error {
	return s.Redis.SRem(ctx, scanningKey, userID).Err()
}

// FindNearbyUsers повертає профілі користувачів, які сканують у радіусі
// radiusMeters від userID. Якщо позиція userID невідома, повертаються всі,
// хто сканує: відстань тоді просто не показується.
func (s *Service) FindNearbyUsers(ctx context.Context, userID string, radiusMeters float64) ([]models.Profile, error) {
	scanning, err := s.Redis.SMembers(ctx, scanningKey).Result()
	if err != nil {
		return nil, err
	}
	if len(scanning) == 0 {
		return []models.Profile{}, nil
	}

	own, err := s.GetLocation(ctx, userID)
	if err != nil {
		return nil, err
	}

	locations := make(map[string]*geo.Coordinate)
	var ids []string
	if own == nil {
		for _, id := range scanning {
			if id != userID {
				ids = append(ids, id)
			}
		}
		if locations, err = s.positions(ctx, ids); err != nil {
			return nil, err
		}
	} else {
		isScanning := make(map[string]bool, len(scanning))
		for _, id := range scanning {
			isScanning[id] = true
		}
		found, err := s.Redis.GeoSearchLocation(ctx, geoKey, &redis.GeoSearchLocationQuery{
			GeoSearchQuery: redis.GeoSearchQuery{
				Member:     userID,
				Radius:     radiusMeters,
				RadiusUnit: "m",
				Sort:       "ASC",
			},
			WithCoord: true,
		}).Result()
		if err != nil {
			return nil, err
		}
		for _, loc := range found {
			if loc.Name == userID || !isScanning[loc.Name] {
				continue
			}
			ids = append(ids, loc.Name)
			locations[loc.Name] = &geo.Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
		}
	}
	if len(ids) == 0 {
		return []models.Profile{}, nil
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	profiles := make([]models.Profile, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			// Користувач видалений, а запис у Redis лишився.
			continue
		}
		profiles = append(profiles, u.Profile(locations[id]))
	}
	return profiles, nil
}
