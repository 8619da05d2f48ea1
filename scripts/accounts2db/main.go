package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/golang-migrate/migrate/v4"
	migratep "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jessevdk/go-flags"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Decentr-net/mosaic/internal/entities"
	"github.com/Decentr-net/mosaic/internal/storage"
	mongostorage "github.com/Decentr-net/mosaic/internal/storage/mongo"
	"github.com/Decentr-net/mosaic/internal/storage/postgres"
)

var opts = struct {
	Accounts           string `long:"accounts" env:"ACCOUNTS" default:"accounts.json" description:"path to accounts export"`
	Storage            string `long:"storage" env:"STORAGE" default:"postgres" description:"posts storage" choice:"postgres" choice:"mongo"`
	Postgres           string `long:"postgres" env:"POSTGRES" default:"host=localhost port=5432 user=postgres password=root sslmode=disable" description:"postgres dsn"`
	PostgresMigrations string `long:"postgres.migrations" env:"POSTGRES_MIGRATIONS" default:"scripts/migrations/postgres" description:"postgres migrations directory"`
	Mongo              string `long:"mongo" env:"MONGO" default:"mongodb://localhost:27017" description:"mongodb uri"`
	MongoDatabase      string `long:"mongo.database" env:"MONGO_DATABASE" default:"mosaic" description:"mongodb database name"`
}{}

type account struct {
	ID        string   `json:"id"`
	IsPrivate bool     `json:"isPrivate"`
	Followers []string `json:"followers"`
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.ShortDescription = "accounts2db"
	parser.LongDescription = "Imports accounts and their followers exported by identity service"

	_, err := parser.Parse()

	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		logrus.WithError(err).Fatal("error occurred while parsing flags")
	}

	logrus.Info("accounts2db started")

	b, err := ioutil.ReadFile(opts.Accounts)
	if err != nil {
		logrus.WithError(err).Fatal("failed to read accounts")
	}

	var accounts []account
	if err := json.Unmarshal(b, &accounts); err != nil {
		logrus.WithError(err).Fatal("failed to unmarshal accounts")
	}

	ctx := context.Background()
	s := mustGetStorage(ctx)

	for i, v := range accounts {
		if err := s.SetUser(ctx, &entities.User{ID: v.ID, IsPrivate: v.IsPrivate}); err != nil {
			logrus.WithError(err).Fatal("failed to put account into db")
		}

		for _, follower := range v.Followers {
			if err := s.Follow(ctx, follower, v.ID); err != nil {
				logrus.WithError(err).Fatal("failed to put following into db")
			}
		}

		if (i+1)%20 == 0 {
			logrus.Infof("%d of %d accounts imported", i+1, len(accounts))
		}
	}

	logrus.Info("done")
}

func mustGetStorage(ctx context.Context) storage.Storage {
	if opts.Storage == "mongo" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.Mongo))
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to mongo")
		}

		d := client.Database(opts.MongoDatabase)
		if err := mongostorage.Migrate(ctx, d); err != nil {
			logrus.WithError(err).Fatal("failed to migrate mongo")
		}

		return mongostorage.New(d)
	}

	return postgres.New(mustGetDB())
}

func mustGetDB() *sql.DB {
	db, err := sql.Open("postgres", opts.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create postgres connection")
	}

	if err := db.PingContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	driver, err := migratep.WithInstance(db, &migratep.Config{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to create database migrate driver")
	}

	migrator, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", opts.PostgresMigrations), "postgres", driver)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		logrus.WithError(err).Fatal("failed to migrate db")
	}

	return db
}
