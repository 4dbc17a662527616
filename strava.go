package shoes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bzimmer/activity"
	"github.com/bzimmer/activity/strava"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// total caps how many activities a single fetch will page through.
const total = 500

// ErrUnauthenticated marks credential failures so consumers can prompt for a
// reconnect instead of showing an empty report.
var ErrUnauthenticated = errors.New("not authenticated with strava")

// Fetcher supplies the reporting functions with an already-materialized
// snapshot of activities and registered shoes.
type Fetcher interface {
	Activities(ctx context.Context, after time.Time) ([]*Activity, error)
	Shoes(ctx context.Context) ([]*Gear, error)
}

// Client implements Fetcher against the Strava API.
type Client struct {
	client *strava.Client
}

// NewClient builds a Strava client refreshing its token as needed.
func NewClient(ctx context.Context, clientID, clientSecret string, token *oauth2.Token) (*Client, error) {
	if token == nil || token.AccessToken == "" {
		return nil, ErrUnauthenticated
	}
	client, err := strava.NewClient(
		strava.WithClientCredentials(clientID, clientSecret),
		strava.WithTokenCredentials(token.AccessToken, token.RefreshToken, token.Expiry),
		strava.WithAutoRefresh(ctx))
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// Activities pages through every activity started after `after`.
func (c *Client) Activities(ctx context.Context, after time.Time) ([]*Activity, error) {
	var res []*Activity
	// yes this order is correct
	opt := strava.WithDateRange(time.Now().Add(time.Hour*24), after)
	acts := c.client.Activity.Activities(ctx, activity.Pagination{Total: total}, opt)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-acts:
			if !ok {
				log.Info().Int("n", len(res)).Msg("activities")
				return res, nil
			}
			if r.Err != nil {
				return nil, classify(r.Err)
			}
			res = append(res, conv(r.Activity))
		}
	}
}

// Shoes returns the authenticated athlete's registered shoes.
func (c *Client) Shoes(ctx context.Context) ([]*Gear, error) {
	ath, err := c.client.Athlete.Athlete(ctx)
	if err != nil {
		return nil, classify(err)
	}
	res := make([]*Gear, 0, len(ath.Shoes))
	for _, shoe := range ath.Shoes {
		res = append(res, &Gear{
			ID:       shoe.ID,
			Name:     shoe.Name,
			Distance: float64(shoe.Distance),
			Primary:  shoe.Primary,
		})
	}
	log.Info().Int("n", len(res)).Msg("shoes")
	return res, nil
}

// Names maps gear ids to display names for the reporting functions.
func Names(gear []*Gear) map[string]string {
	names := make(map[string]string, len(gear))
	for _, g := range gear {
		names[g.ID] = g.Name
	}
	return names
}

func conv(act *strava.Activity) *Activity {
	return &Activity{
		ID:            act.ID,
		Name:          act.Name,
		Type:          act.Type,
		StartDate:     act.StartDate,
		Distance:      float64(act.Distance),
		MovingTime:    int(act.MovingTime.Seconds()),
		ElevationGain: float64(act.ElevationGain),
		GearID:        act.GearID,
	}
}

// classify surfaces token failures as ErrUnauthenticated; anything else
// passes through unchanged.
func classify(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		if rerr.Response == nil {
			return ErrUnauthenticated
		}
		return fmt.Errorf("%w: %s", ErrUnauthenticated, rerr.Response.Status)
	}
	return err
}
