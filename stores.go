package main

import (
	"context"
	"fmt"

	"github.com/TomKlotzPro/openbite/config"
	"github.com/TomKlotzPro/openbite/models"
	"github.com/TomKlotzPro/openbite/repository"
)

type stores struct {
	posts   repository.PostRepository
	upvotes repository.UpvoteRepository
	users   repository.UserRepository
	close   func() error
}

// openStores connects the backend named by StorageDriver: mysql, postgres, mongo or badger.
func openStores(cfg config.AppConfig) (*stores, error) {
	switch cfg.StorageDriver {
	case "mysql", "postgres":
		db, err := config.OpenDatabase(cfg, &models.Post{}, &models.Upvote{}, &models.User{})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &stores{
			posts:   repository.NewGormPostRepository(db),
			upvotes: repository.NewGormUpvoteRepository(db),
			users:   repository.NewGormUserRepository(db),
			close:   sqlDB.Close,
		}, nil

	case "mongo":
		ctx := context.Background()
		db, err := config.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureMongoIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		return &stores{
			posts:   repository.NewMongoPostRepository(db),
			upvotes: repository.NewMongoUpvoteRepository(db),
			users:   repository.NewMongoUserRepository(db),
			close:   func() error { return db.Client().Disconnect(context.Background()) },
		}, nil

	case "badger":
		db, err := repository.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		return &stores{
			posts:   repository.NewBadgerPostRepository(db),
			upvotes: repository.NewBadgerUpvoteRepository(db),
			users:   repository.NewBadgerUserRepository(db),
			close:   db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
