package main

import (
	"time"

	"github.com/TomKlotzPro/openbite/config"
	"github.com/TomKlotzPro/openbite/controllers"
	"github.com/TomKlotzPro/openbite/routes"
	"github.com/TomKlotzPro/openbite/services"
	"github.com/TomKlotzPro/openbite/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	st, err := openStores(cfg)
	if err != nil {
		utils.Sugar.Fatalf("open %s storage: %v", cfg.StorageDriver, err)
	}

	rc := utils.NewRedisClient(cfg)
	cache := utils.NewCache(rc, time.Duration(cfg.CacheTTLSeconds)*time.Second)

	var lock utils.CreationLock = utils.NewMemoryCreationLock()
	if cfg.LockBackend == "redis" && rc != nil {
		lock = utils.NewRedisCreationLock(rc, time.Duration(cfg.CreationLockMaxHoldSec)*time.Second)
	}

	blogs := services.NewBlogService(st.posts, st.upvotes, st.users, lock, cache, services.BlogOptions{
		Cooldown:    time.Duration(cfg.CreationCooldownSec) * time.Second,
		MaxPageSize: cfg.MaxPageSize,
	})
	votes := services.NewUpvoteService(st.posts, st.upvotes, st.users, cache)

	r := routes.SetupRouter(cfg, controllers.NewBlogController(blogs, votes))

	srv := utils.GraceServer(":"+cfg.AppPort, r)
	srv.OnShutdown(st.close)
	if rc != nil {
		srv.OnShutdown(rc.Close)
	}

	utils.Sugar.Infow("starting server", "port", cfg.AppPort, "storage", cfg.StorageDriver, "lock", cfg.LockBackend)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
