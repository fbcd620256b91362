package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"traderadar/backend/internal/apiclient"
	"traderadar/backend/internal/config"
	"traderadar/backend/internal/failure"
	"traderadar/backend/internal/geo"
	"traderadar/backend/internal/localization"
	"traderadar/backend/internal/models"
	"traderadar/backend/internal/negotiation"
	"traderadar/backend/internal/radar"
)

// radarRadius is the radius, in character cells, of the printed radar.
const radarRadius = 20.0

func usage() {
	fmt.Println(`Usage: radar <command> [args]

  register <display_name>             create a user, print RADAR_TOKEN and RADAR_USER_ID
  add <want|have> <card_id> <name>    add a card to a list
  locate <lat> <lon>                  report the current position
  matches                             print the current matches once
  scan                                scan for matches until interrupted
  chat <match_id>                     open the negotiation and chat (stdin)
  complete <match_id>                 complete the deal
  cancel <match_id> [reason]          cancel the negotiation`)
}

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	loc, err := localization.NewEmbedded()
	if err != nil {
		log.Fatalf("localization: %v", err)
	}
	lang := loc.Language(os.Getenv("LANG"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if os.Args[1] == "register" {
		if len(os.Args) != 3 {
			usage()
			os.Exit(1)
		}
		c, err := apiclient.Register(ctx, cfg.BaseURL, os.Args[2], cfg.CallTimeout)
		if err != nil {
			log.Fatalf("register: %v", err)
		}
		fmt.Printf("export RADAR_TOKEN=%s\nexport RADAR_USER_ID=%s\n", c.Token, c.UserID)
		return
	}

	if cfg.Token == "" || cfg.UserID == "" {
		fmt.Println("RADAR_TOKEN and RADAR_USER_ID must be set; run `radar register` first.")
		os.Exit(1)
	}
	client := apiclient.New(cfg.BaseURL, cfg.Token, cfg.UserID, cfg.CallTimeout)
	app := &app{cfg: cfg, client: client, logger: logger, loc: loc, lang: lang}

	switch cmd := os.Args[1]; cmd {
	case "add":
		if len(os.Args) < 5 {
			usage()
			os.Exit(1)
		}
		kind := models.ListKind(os.Args[2])
		entry := models.TradeListEntry{CardTemplateID: os.Args[3], CardName: strings.Join(os.Args[4:], " ")}
		err = client.AddListEntry(ctx, kind, entry)
	case "locate":
		if len(os.Args) != 4 {
			usage()
			os.Exit(1)
		}
		err = app.locate(ctx, os.Args[2], os.Args[3])
	case "matches":
		var matches []models.Match
		if matches, err = client.Matches(ctx); err == nil {
			printMatches(matches)
		}
	case "scan":
		err = app.scan(ctx)
	case "chat", "complete", "cancel":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		err = app.negotiate(ctx, cmd, os.Args[2], strings.Join(os.Args[3:], " "))
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Println(app.notify(err))
		os.Exit(1)
	}
}

type app struct {
	cfg    config.ClientConfig
	client *apiclient.Client
	logger *zap.Logger
	loc    *localization.Localizer
	lang   string
}

// notify renders err as a user-facing message for its failure kind.
func (a *app) notify(err error) string {
	key, ok := config.NotificationKeys[failure.KindOf(err).String()]
	if !ok {
		return err.Error()
	}
	return a.loc.GetString(a.lang, key)
}

func (a *app) locate(ctx context.Context, latArg, lonArg string) error {
	lat, err1 := strconv.ParseFloat(latArg, 64)
	lon, err2 := strconv.ParseFloat(lonArg, 64)
	if err := errors.Join(err1, err2); err != nil {
		return failure.ValidationErr("locate", err.Error())
	}
	return a.client.SetLocation(ctx, geo.Coordinate{Latitude: lat, Longitude: lon})
}

func (a *app) collector() *radar.Collector {
	return &radar.Collector{
		UserID:    a.cfg.UserID,
		Lists:     a.client,
		Pool:      a.client,
		Directory: a.client,
		Location:  a.client,
		Timeout:   a.cfg.CallTimeout,
		Logger:    a.logger,
	}
}

func (a *app) scan(ctx context.Context) error {
	if err := a.client.StartScanning(ctx); err != nil {
		return err
	}
	defer func() {
		shutCtx, cancel := context.WithTimeout(context.Background(), a.cfg.CallTimeout)
		defer cancel()
		if err := a.client.StopScanning(shutCtx); err != nil {
			a.logger.Warn("stop scanning", zap.Error(err))
		}
	}()

	scanner := radar.NewScanner(a.collector(), a.cfg.ScanInterval, a.logger)
	scanner.Canceller = a.client
	scanner.CancelStale = a.cfg.CancelStale
	scanner.OnPublish = printMatches

	scanner.StartScanning(ctx)
	<-ctx.Done()
	scanner.StopScanning()
	return nil
}

func printMatches(matches []models.Match) {
	fmt.Printf("\n%s  %d match(es)\n", time.Now().Format(time.TimeOnly), len(matches))
	for _, m := range matches {
		x, y := radar.Layout(m, radarRadius)
		dist := "?"
		if m.DistanceMeters != nil {
			dist = fmt.Sprintf("%.0fm", *m.DistanceMeters)
		}
		fmt.Printf("  %-36s %-22s %-8s cards=%-2d dist=%-7s pos=(%+.1f,%+.1f) %s\n",
			m.ID, m.Type, m.Status, len(m.MatchedCards), dist, x, y, m.Counterpart.DisplayName)
	}
}

// findMatch computes the current matches once and returns matchID's.
func (a *app) findMatch(ctx context.Context, matchID string) (models.Match, error) {
	in, err := a.collector().Collect(ctx)
	if err != nil {
		return models.Match{}, err
	}
	for _, m := range in.Matches() {
		if m.ID == matchID {
			return m, nil
		}
	}
	return models.Match{}, failure.ValidationErr("find match", "no match "+matchID+" on the radar")
}

func (a *app) negotiate(ctx context.Context, cmd, matchID, arg string) error {
	match, err := a.findMatch(ctx, matchID)
	if err != nil {
		return err
	}

	mgr := negotiation.NewManager(a.cfg.UserID, a.client, a.client, a.cfg.PollInterval, a.cfg.CallTimeout, a.logger)
	defer mgr.Close()
	session, err := mgr.OpenSession(ctx, match)
	if err != nil {
		return err
	}

	switch cmd {
	case "complete":
		return session.Complete(ctx)
	case "cancel":
		return session.Cancel(ctx, arg)
	}
	return a.chat(ctx, session)
}

func (a *app) chat(ctx context.Context, session *negotiation.Session) error {
	fmt.Printf("negotiating with %s (%s); type a message and press enter, /refresh to poll now, ctrl-c to leave\n",
		session.Match.Counterpart.DisplayName, session.Status())

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	printed := printNew(session.Messages(), 0)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			var err error
			if strings.TrimSpace(line) == "/refresh" {
				err = session.Refresh(ctx)
			} else {
				err = session.Send(ctx, line)
			}
			if err != nil {
				fmt.Println(a.notify(err))
			}
			printed = printNew(session.Messages(), printed)
		case <-ticker.C:
			printed = printNew(session.Messages(), printed)
			if st := session.Status(); st.Terminal() {
				fmt.Printf("negotiation %s\n", st)
				return nil
			}
		}
	}
}

// printNew prints messages past the first n and returns the new count. The
// log only grows, so earlier positions never change.
func printNew(msgs []models.Message, n int) int {
	for _, m := range msgs[min(n, len(msgs)):] {
		who := "them"
		if m.SenderIsCurrentUser {
			who = "me"
		}
		fmt.Printf("[%s] %-4s %s\n", m.SentAt.Local().Format(time.TimeOnly), who, m.Content)
	}
	return len(msgs)
}
