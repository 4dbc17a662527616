package shoes

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

const sessionName = "shoes"

// FetcherFunc builds a Fetcher for the session's credentials.
type FetcherFunc func(ctx context.Context, token *oauth2.Token) (Fetcher, error)

// NewEngine wires the web application: oauth login flow, dashboard, period
// reports and the per-shoe activity drill-down.
func NewEngine(cfg *oauth2.Config, state, sessionKey string, f FetcherFunc) (*echo.Echo, error) {
	funcs := template.FuncMap{
		"divkm": func(m float64) float64 { return m / 1000 },
		"divhr": func(s int) float64 { return float64(s) / 3600 },
	}
	t, err := template.New("").Funcs(funcs).ParseFS(Content, "templates/*.html")
	if err != nil {
		return nil, err
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{templates: t}
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(sessionKey))))
	e.GET("/", IndexHandler(f))
	e.GET("/auth/login", LoginHandler(cfg, state))
	e.GET("/auth/callback", AuthCallbackHandler(cfg, state))
	e.GET("/auth/logout", LogoutHandler())
	e.GET("/reports/weekly", ReportHandler(f, Weekly))
	e.GET("/reports/monthly", ReportHandler(f, Monthly))
	e.GET("/reports/yearly", ReportHandler(f, Yearly))
	e.GET("/activities", ActivitiesHandler(f))
	return e, nil
}

// LambdaHandler adapts the engine for API Gateway invocations
func LambdaHandler(adapter *echoadapter.EchoLambda) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	}
}

type renderer struct {
	templates *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// LoginHandler redirects to the oauth provider's credential acceptance page
func LoginHandler(cfg *oauth2.Config, state string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Redirect(http.StatusFound, cfg.AuthCodeURL(state))
	}
}

// AuthCallbackHandler receives the callback from the oauth provider with the
// credentials and stores the token in the session
func AuthCallbackHandler(cfg *oauth2.Config, state string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s := c.QueryParam("state"); s != state {
			return echo.NewHTTPError(http.StatusBadRequest, "state invalid")
		}
		code := c.QueryParam("code")
		if code == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "code not found")
		}
		token, err := cfg.Exchange(c.Request().Context(), code)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := setSessionToken(c, token); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, "/")
	}
}

// LogoutHandler drops the session
func LogoutHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := setSessionToken(c, nil); err != nil {
			return err
		}
		return c.Redirect(http.StatusFound, "/")
	}
}

// IndexHandler renders the dashboard: all-time summary plus the most recent
// weekly, monthly and yearly rows over the last year of activities.
func IndexHandler(f FetcherFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == nil {
			return c.Redirect(http.StatusTemporaryRedirect, "/auth/login")
		}
		ctx := c.Request().Context()
		after := time.Now().AddDate(0, 0, -365)
		acts, names, err := snapshot(ctx, f, token, after)
		if err != nil {
			return fetchError(c, err)
		}
		return c.Render(http.StatusOK, "index.html", map[string]interface{}{
			"Summary":    Summary(acts, names),
			"Weekly":     head(Report(acts, names, Weekly, after), 10),
			"Monthly":    head(Report(acts, names, Monthly, after), 6),
			"Yearly":     Report(acts, names, Yearly, after),
			"Activities": len(acts),
			"Shoes":      len(names),
		})
	}
}

// ReportHandler renders one full period report. The fetch window defaults to
// a year (three for yearly reports) and can be overridden with ?days=N.
func ReportHandler(f FetcherFunc, g Granularity) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == nil {
			return c.Redirect(http.StatusTemporaryRedirect, "/auth/login")
		}
		days := 365
		if g == Yearly {
			days = 3 * 365
		}
		if v := c.QueryParam("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "days invalid")
			}
			days = n
		}
		ctx := c.Request().Context()
		after := time.Now().AddDate(0, 0, -days)
		acts, names, err := snapshot(ctx, f, token, after)
		if err != nil {
			return fetchError(c, err)
		}
		return c.Render(http.StatusOK, "report.html", map[string]interface{}{
			"Title": g.String(),
			"Rows":  Report(acts, names, g, after),
		})
	}
}

// ActivitiesHandler renders the drill-down listing, optionally filtered by
// ?gear=ID, over the last year (?days=N to widen).
func ActivitiesHandler(f FetcherFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := sessionToken(c)
		if token == nil {
			return c.Redirect(http.StatusTemporaryRedirect, "/auth/login")
		}
		days := 365
		if v := c.QueryParam("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "days invalid")
			}
			days = n
		}
		ctx := c.Request().Context()
		after := time.Now().AddDate(0, 0, -days)
		acts, names, err := snapshot(ctx, f, token, after)
		if err != nil {
			return fetchError(c, err)
		}
		gear := c.QueryParam("gear")
		return c.Render(http.StatusOK, "activities.html", map[string]interface{}{
			"Gear":       gear,
			"Activities": Activities(acts, gear, after, names),
		})
	}
}

// snapshot fetches activities and shoes concurrently and returns the
// activities along with the gear name mapping.
func snapshot(ctx context.Context, f FetcherFunc, token *oauth2.Token, after time.Time) ([]*Activity, map[string]string, error) {
	client, err := f(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	var acts []*Activity
	var gear []*Gear
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		var err error
		acts, err = client.Activities(ctx, after)
		return err
	})
	grp.Go(func() error {
		var err error
		gear, err = client.Shoes(ctx)
		return err
	})
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}
	return acts, Names(gear), nil
}

// fetchError sends expired credentials back through the login flow; other
// failures propagate to echo's error handler.
func fetchError(c echo.Context, err error) error {
	if errors.Is(err, ErrUnauthenticated) {
		log.Warn().Err(err).Msg("session expired")
		if err := setSessionToken(c, nil); err != nil {
			return err
		}
		return c.Redirect(http.StatusTemporaryRedirect, "/auth/login")
	}
	return err
}

func sessionToken(c echo.Context) *oauth2.Token {
	s, err := session.Get(sessionName, c)
	if err != nil {
		return nil
	}
	v, ok := s.Values["token"].(string)
	if !ok || v == "" {
		return nil
	}
	var t oauth2.Token
	if err := json.Unmarshal([]byte(v), &t); err != nil {
		return nil
	}
	return &t
}

func setSessionToken(c echo.Context, t *oauth2.Token) error {
	s, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	if t == nil {
		delete(s.Values, "token")
		s.Options.MaxAge = -1
	} else {
		val, err := json.Marshal(t)
		if err != nil {
			return err
		}
		s.Values["token"] = string(val)
	}
	return s.Save(c.Request(), c.Response())
}

func head(rows []*Row, n int) []*Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
