package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/runtracker/shoes"
)

func testContext(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for k, v := range args {
		set.String(k, v, "")
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestOAuthConfig(t *testing.T) {
	c := testContext(t, map[string]string{
		"client-id":     "id",
		"client-secret": "secret",
		"base-url":      "http://localhost:9001",
	})

	cfg := oauthConfig(c)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "secret", cfg.ClientSecret)
	assert.Equal(t, "http://localhost:9001/auth/callback", cfg.RedirectURL)
	assert.Contains(t, cfg.Endpoint.AuthURL, "strava")
	assert.Contains(t, cfg.Endpoint.TokenURL, "strava")
}

func TestBuild(t *testing.T) {
	acts := []*shoes.Activity{
		{ID: 1, StartDate: time.Date(2023, 4, 3, 8, 0, 0, 0, time.UTC),
			Distance: 5000, MovingTime: 1800, ElevationGain: 50, GearID: "g1"},
		{ID: 2, StartDate: time.Date(2023, 4, 10, 8, 0, 0, 0, time.UTC),
			Distance: 3000, MovingTime: 1200, ElevationGain: 30, GearID: "g2"},
	}
	names := map[string]string{"g1": "Pegasus", "g2": "Speedgoat"}

	res, err := build("summary", acts, names, time.Time{}, "")
	require.NoError(t, err)
	require.Len(t, res.([]*shoes.Row), 2)

	for _, kind := range []string{"weekly", "monthly", "yearly"} {
		res, err := build(kind, acts, names, time.Time{}, "")
		require.NoErrorf(t, err, "kind %s", kind)
		rows := res.([]*shoes.Row)
		require.NotEmptyf(t, rows, "kind %s", kind)
		assert.NotEmptyf(t, rows[0].Period, "kind %s", kind)
	}

	res, err = build("activities", acts, names, time.Time{}, "g1")
	require.NoError(t, err)
	list := res.([]*shoes.Activity)
	require.Len(t, list, 1)
	assert.Equal(t, "Pegasus", list[0].GearName)

	_, err = build("hourly", acts, names, time.Time{}, "")
	assert.Error(t, err)
}

func TestWriteRows(t *testing.T) {
	rows := []*shoes.Row{
		{Period: "2023-W15", GearID: "g1", GearName: "Pegasus",
			Distance: 3, MovingTime: 0.5, ElevationGain: 30, Count: 1},
	}

	var buf bytes.Buffer
	require.NoError(t, writeRows(&buf, rows, true))
	out := buf.String()
	assert.Contains(t, out, "PERIOD")
	assert.Contains(t, out, "2023-W15")
	assert.Contains(t, out, "Pegasus")
	assert.Contains(t, out, "3.00")
	assert.Contains(t, out, "0.50")

	buf.Reset()
	require.NoError(t, writeRows(&buf, rows, false))
	assert.NotContains(t, buf.String(), "PERIOD")

	buf.Reset()
	require.NoError(t, writeRows(&buf, nil, false))
	assert.Contains(t, buf.String(), "No data available")
}

func TestWriteActivities(t *testing.T) {
	acts := []*shoes.Activity{
		{ID: 1, Name: "morning run", Type: "Run",
			StartDate: time.Date(2023, 4, 3, 8, 0, 0, 0, time.UTC),
			Distance:  5000, MovingTime: 1800, ElevationGain: 50,
			GearID: "g1", GearName: "Pegasus"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeActivities(&buf, acts))
	out := buf.String()
	assert.Contains(t, out, "2023-04-03")
	assert.Contains(t, out, "morning run")
	assert.Contains(t, out, "5.00")
	assert.Contains(t, out, "0.50")
	assert.Contains(t, out, "Pegasus")

	buf.Reset()
	require.NoError(t, writeActivities(&buf, nil))
	assert.Contains(t, buf.String(), "No data available")
}
