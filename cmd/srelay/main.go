package main

import (
	"context"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/labstack/gommon/color"

	"github.com/arimas/srelay/internal/pkg/archive"
	"github.com/arimas/srelay/internal/pkg/deepgram"
	"github.com/arimas/srelay/internal/pkg/postgres"
	"github.com/arimas/srelay/internal/pkg/saver"
	"github.com/arimas/srelay/internal/pkg/speech"
	"github.com/arimas/srelay/internal/pkg/utils"
)

func main() {
	goapp.StartWithDefault()

	printBanner()

	cfg := goapp.Config
	data := &speech.Data{}
	data.Port = cfg.GetInt("port")

	ctx := context.Background()

	var store saver.Store
	if dbURL := cfg.GetString("db.url"); dbURL != "" {
		dbConfig, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't parse db config")
		}
		dbConfig.ConnConfig.Tracer = &tracelog.TraceLog{Logger: utils.NewPgxLogAdapter(),
			LogLevel: tracelog.LogLevelWarn}
		dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init db pool")
		}
		defer dbPool.Close()
		if err := waitForDB(ctx, dbPool); err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't reach db")
		}
		store, err = postgres.NewDB(dbPool)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init db")
		}
	} else {
		goapp.Log.Warn().Msg("no db.url provided - transcripts will not be persisted")
	}
	data.Saver = saver.NewSaver(store)

	if key := cfg.GetString("deepgram.key"); key != "" {
		tr, err := deepgram.NewClient(cfg.GetString("deepgram.url"), key)
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init deepgram client")
		}
		data.Transcriber = tr
	} else {
		goapp.Log.Warn().Msg("no deepgram.key provided - running in mock mode")
	}

	if aURL := cfg.GetString("archive.url"); aURL != "" {
		filer, err := archive.NewFiler(ctx, archive.Options{URL: aURL,
			Bucket: cfg.GetString("archive.bucket"), User: cfg.GetString("archive.user"),
			Key: cfg.GetString("archive.key")})
		if err != nil {
			goapp.Log.Fatal().Err(err).Msg("can't init audio archive")
		}
		data.Archiver = filer
	}

	go utils.RunPerfEndpoint()

	if err := speech.StartWebServer(data); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start web server")
	}
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Second * 30
	return backoff.Retry(func() error {
		if err := pool.Ping(ctx); err != nil {
			goapp.Log.Warn().Err(err).Msg("waiting for db")
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
                 __           
   _____________ / /___ ___  __
  / ___/ ___/ _ \/ / __ '/ / / /
 (__  ) /  /  __/ / /_/ / /_/ / 
/____/_/   \___/_/\__,_/\__, /  
                       /____/   v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("speech to text relay"))
}
