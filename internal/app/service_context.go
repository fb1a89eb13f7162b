package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"arkx/internal/application/port"
	"arkx/internal/infrastructure/config"
	"arkx/internal/infrastructure/session"
	"arkx/internal/infrastructure/storage/composite"
	postgresrepo "arkx/internal/infrastructure/storage/postgres"
	redisrepo "arkx/internal/infrastructure/storage/redis"
	sqliterepo "arkx/internal/infrastructure/storage/sqlite"
	"arkx/internal/infrastructure/svc"
	"arkx/internal/interfaces/console"
)

// closeGrace keeps released sessions alive briefly so in-flight writes land.
const closeGrace = 100 * time.Millisecond

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	redisClient *redisclient.Client
	store       port.AccountStore
	cookieCache port.CookieCache
	pool        *session.Pool

	// 输出端口
	Sink     port.Sink
	Prompter port.CodePrompter

	// 资源管理
	closerChain []func() error
	closeOnce   sync.Once
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Sink:        console.NewSink(),
		Prompter:    console.NewPrompter(),
		closerChain: make([]func() error, 0),
	}

	// 按依赖顺序初始化
	if err := sc.initializeStorage(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}

	sc.pool = session.NewPool(cfg.SessionTimeout(), closeGrace)
	sc.closerChain = append(sc.closerChain, func() error {
		sc.pool.ReleaseAll()
		return nil
	})

	log.Info().Msg("✓ All components initialized")
	return sc, nil
}

// initializeStorage 初始化存储层，账户存储二选一，Redis 仅作 cookie 缓存
func (sc *ServiceContext) initializeStorage() error {
	switch {
	case sc.Config.Postgres.Enabled:
		if err := sc.initPostgres(); err != nil {
			return fmt.Errorf("postgres initialization failed: %w", err)
		}
	case sc.Config.SQLite.Enabled:
		if err := sc.initSQLite(); err != nil {
			return fmt.Errorf("sqlite initialization failed: %w", err)
		}
	default:
		return fmt.Errorf("%w: no account store enabled", svc.ErrStorageInitFailed)
	}

	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis initialization failed: %w", err)
		}
	}
	return nil
}

func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return err
	}
	sc.store = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().Str("path", sc.Config.SQLite.Path).Msg("✓ SQLite initialized")
	return nil
}

func (sc *ServiceContext) initPostgres() error {
	repo, err := postgresrepo.New(sc.Config.Postgres.DSN)
	if err != nil {
		return err
	}
	sc.store = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	sc.cookieCache = redisrepo.New(rdb, sc.Config.Redis.Prefix, sc.Config.CookieStoreTTL())

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

// Store 账户存储
func (sc *ServiceContext) Store() port.AccountStore { return sc.store }

// Pool 会话池
func (sc *ServiceContext) Pool() *session.Pool { return sc.pool }

// CookieStore 组合 cookie 存取（缓存可能为 nil）
func (sc *ServiceContext) CookieStore() *composite.CookieStore {
	return composite.NewCookieStore(sc.store, sc.cookieCache)
}

// Close 逆序释放全部资源，可重复调用
func (sc *ServiceContext) Close() error {
	var firstErr error
	sc.closeOnce.Do(func() {
		for i := len(sc.closerChain) - 1; i >= 0; i-- {
			if err := sc.closerChain[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
