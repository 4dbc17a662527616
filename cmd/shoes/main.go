package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/bzimmer/activity/strava"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/runtracker/shoes"
)

// token produces a random token of length `n`
func token(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func oauthConfig(c *cli.Context) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.String("client-id"),
		ClientSecret: c.String("client-secret"),
		Scopes:       []string{"read,activity:read_all,profile:read_all"},
		RedirectURL:  c.String("base-url") + "/auth/callback",
		Endpoint:     strava.Endpoint()}
}

func newEngine(c *cli.Context) (*echo.Echo, error) {
	state, err := token(16)
	if err != nil {
		return nil, err
	}
	cfg := oauthConfig(c)
	f := func(ctx context.Context, t *oauth2.Token) (shoes.Fetcher, error) {
		return shoes.NewClient(ctx, cfg.ClientID, cfg.ClientSecret, t)
	}
	return shoes.NewEngine(cfg, state, c.String("session-key"), f)
}

func serve(c *cli.Context) error {
	engine, err := newEngine(c)
	if err != nil {
		return err
	}
	if c.Bool("netlify") {
		log.Info().Msg("running function")
		lambda.Start(shoes.LambdaHandler(echoadapter.New(engine)))
		return nil
	}
	u, err := url.Parse(c.String("base-url"))
	if err != nil {
		return err
	}
	_, port, _ := net.SplitHostPort(u.Host)
	address := fmt.Sprintf("0.0.0.0:%s", port)
	log.Info().Str("address", address).Msg("serving")
	return http.ListenAndServe(address, engine)
}

func report(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("missing report type (summary, weekly, monthly, yearly, activities)")
	}
	kind := c.Args().First()
	access := c.String("access-token")
	if access == "" {
		return fmt.Errorf("no access token; run `shoes serve`, log in, and set STRAVA_ACCESS_TOKEN")
	}
	ctx := c.Context
	client, err := shoes.NewClient(ctx, c.String("client-id"), c.String("client-secret"),
		&oauth2.Token{AccessToken: access, RefreshToken: c.String("refresh-token")})
	if err != nil {
		return err
	}

	days := c.Int("days")
	after := time.Now().AddDate(0, 0, -days)
	log.Info().Int("days", days).Msg("fetching activities")
	acts, err := client.Activities(ctx, after)
	if err != nil {
		return err
	}
	log.Info().Msg("fetching shoes")
	gear, err := client.Shoes(ctx)
	if err != nil {
		return err
	}
	res, err := build(kind, acts, shoes.Names(gear), after, c.String("shoe"))
	if err != nil {
		return err
	}

	if c.String("format") == "json" {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	switch v := res.(type) {
	case []*shoes.Row:
		return writeRows(c.App.Writer, v, kind != "summary")
	case []*shoes.Activity:
		return writeActivities(c.App.Writer, v)
	}
	return nil
}

// build dispatches a report type argument to the matching reporting function.
func build(kind string, acts []*shoes.Activity, names map[string]string, after time.Time, shoe string) (interface{}, error) {
	switch kind {
	case "summary":
		return shoes.Summary(acts, names), nil
	case "weekly", "monthly", "yearly":
		g, err := shoes.ParseGranularity(kind)
		if err != nil {
			return nil, err
		}
		return shoes.Report(acts, names, g, after), nil
	case "activities":
		return shoes.Activities(acts, shoe, after, names), nil
	}
	return nil, fmt.Errorf("unknown report type %q", kind)
}

func writeRows(w io.Writer, rows []*shoes.Row, period bool) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No data available")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	if period {
		fmt.Fprintln(tw, "PERIOD\tSHOE\tDISTANCE (KM)\tTIME (H)\tELEVATION (M)\tACTIVITIES")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.0f\t%d\n",
				r.Period, r.GearName, r.Distance, r.MovingTime, r.ElevationGain, r.Count)
		}
	} else {
		fmt.Fprintln(tw, "SHOE\tDISTANCE (KM)\tTIME (H)\tELEVATION (M)\tACTIVITIES")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.0f\t%d\n",
				r.GearName, r.Distance, r.MovingTime, r.ElevationGain, r.Count)
		}
	}
	return tw.Flush()
}

func writeActivities(w io.Writer, acts []*shoes.Activity) error {
	if len(acts) == 0 {
		_, err := fmt.Fprintln(w, "No data available")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tNAME\tTYPE\tDISTANCE (KM)\tTIME (H)\tELEVATION (M)\tSHOE")
	for _, a := range acts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.0f\t%s\n",
			a.StartDate.Format("2006-01-02"), a.Name, a.Type,
			a.Distance/1000, float64(a.MovingTime)/3600, a.ElevationGain, a.GearName)
	}
	return tw.Flush()
}

func main() {
	app := &cli.App{
		Name:     "shoes",
		HelpName: "shoes",
		Usage:    "Track running shoe mileage with Strava",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "client-id",
				Required: true,
				Usage:    "client id",
				EnvVars:  []string{"STRAVA_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:     "client-secret",
				Required: true,
				Usage:    "client secret",
				EnvVars:  []string{"STRAVA_CLIENT_SECRET"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"web"},
				Usage:   "run the web dashboard",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session-key",
						Required: true,
						Usage:    "session keypair",
						EnvVars:  []string{"SHOES_SESSION_KEY"},
					},
					&cli.StringFlag{
						Name:    "base-url",
						Value:   "http://localhost:9001",
						Usage:   "Base URL",
						EnvVars: []string{"BASE_URL"},
					},
					&cli.BoolFlag{
						Name:    "netlify",
						Value:   false,
						Usage:   "run as a netlify function",
						EnvVars: []string{"NETLIFY"},
					},
				},
				Action: serve,
			},
			{
				Name:      "report",
				Usage:     "print a shoe report",
				ArgsUsage: "summary|weekly|monthly|yearly|activities",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "access-token",
						Usage:   "access token",
						EnvVars: []string{"STRAVA_ACCESS_TOKEN"},
					},
					&cli.StringFlag{
						Name:    "refresh-token",
						Usage:   "refresh token",
						EnvVars: []string{"STRAVA_REFRESH_TOKEN"},
					},
					&cli.IntFlag{
						Name:  "days",
						Value: 365,
						Usage: "number of days to look back",
					},
					&cli.StringFlag{
						Name:  "shoe",
						Usage: "filter activities by shoe id",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "table",
						Usage: "output format (table or json)",
					},
				},
				Action: report,
			},
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			log.Error().Err(err).Msg(c.App.Name)
		},
		Before: func(c *cli.Context) error {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			zerolog.DurationFieldUnit = time.Millisecond
			zerolog.DurationFieldInteger = false
			log.Logger = log.Output(
				zerolog.ConsoleWriter{
					Out:        c.App.ErrWriter,
					NoColor:    false,
					TimeFormat: time.RFC3339,
				},
			)
			return nil
		},
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}
