// Command gametable-server is the composition root: it wires the Postgres
// repositories, Redis snapshot cache and task lock, Kafka event mirror,
// ClickHouse analytics sink, and Prometheus registry into a TableManager,
// then serves gin REST routes for table lifecycle plus a gorilla/websocket
// fan-out endpoint for everything that happens at the table. Grounded in
// cmd/game-server/main.go's NewGameServer/main() wiring order and
// signal.Notify graceful-shutdown idiom.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"gametable/internal/analytics"
	"gametable/internal/eventbus"
	"gametable/internal/eventmirror"
	"gametable/internal/fanout"
	"gametable/internal/fivehundred"
	"gametable/internal/metrics"
	"gametable/internal/snapshotcache"
	"gametable/internal/storage"
	"gametable/internal/storage/postgres"
	"gametable/internal/tableagg"
	"gametable/internal/tablemanager"
	"gametable/internal/tasklock"
	"gametable/pkg/rng"
)

func main() {
	ctx := context.Background()

	db, err := sql.Open("postgres", envOr("GAMETABLE_POSTGRES_DSN", "postgres://localhost:5432/gametable?sslmode=disable"))
	if err != nil {
		log.Fatalf("open postgres: %v", err)
	}
	defer db.Close()
	if err := postgres.CreateTableSchema(ctx, db); err != nil {
		log.Fatalf("bootstrap postgres schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: envOr("GAMETABLE_REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()

	rngSystem, err := rng.NewSystem(rng.NewAuditLogger())
	if err != nil {
		log.Fatalf("initialize rng system: %v", err)
	}

	tables := postgres.NewTablePostgresStorage(db, rngSystem)
	events := postgres.NewEventPostgresStorage(db)
	snapshots := snapshotcache.New(rdb)
	manager := tablemanager.New(tables, events, snapshots, rngSystem)

	lock := tasklock.New(rdb)
	snapshotter := tasklock.NewSnapshotter(lock, manager)
	botScheduler := tasklock.NewBotScheduler(tables, manager, 2*time.Second)
	botScheduler.Start(ctx)
	defer botScheduler.Stop()

	var publisher *eventbus.Publisher
	if brokers := os.Getenv("GAMETABLE_KAFKA_BROKERS"); brokers != "" {
		publisher, err = eventbus.NewPublisher(eventbus.PublisherConfig{
			Brokers:        strings.Split(brokers, ","),
			Topic:          envOr("GAMETABLE_KAFKA_TOPIC", "gametable.events"),
			MaxRetries:     5,
			RetryBackoff:   200 * time.Millisecond,
			FlushFrequency: 500 * time.Millisecond,
			FlushMessages:  100,
			AsyncMode:      true,
		})
		if err != nil {
			log.Printf("eventbus: kafka publisher disabled, connect failed: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	var analyticsRepo analytics.Repository
	if host := os.Getenv("GAMETABLE_CLICKHOUSE_HOST"); host != "" {
		port, _ := strconv.Atoi(envOr("GAMETABLE_CLICKHOUSE_PORT", "9000"))
		chRepo, err := analytics.NewClickHouseRepository(ctx, analytics.ClickHouseConfig{
			Host:     host,
			Port:     port,
			Database: envOr("GAMETABLE_CLICKHOUSE_DATABASE", "gametable"),
			Username: envOr("GAMETABLE_CLICKHOUSE_USER", "default"),
			Password: os.Getenv("GAMETABLE_CLICKHOUSE_PASSWORD"),
		})
		if err != nil {
			log.Printf("analytics: clickhouse sink disabled, connect failed: %v", err)
		} else {
			if err := chRepo.CreateTables(ctx); err != nil {
				log.Fatalf("bootstrap clickhouse schema: %v", err)
			}
			defer chRepo.Close()
			analyticsRepo = chRepo
		}
	}

	hub := fanout.NewHub()
	hub.SetSink(eventmirror.New(publisher, analyticsRepo))

	router := gin.Default()
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerTableRoutes(router, manager, tables)

	router.GET("/ws/:gameName/:tableId", func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user_id"})
			return
		}
		fanout.ServeWS(c.Writer, c.Request, hub, manager, c.Param("tableId"), userID)
	})

	server := &http.Server{
		Addr:    ":" + envOr("GAMETABLE_SERVER_PORT", "8080"),
		Handler: router,
	}

	backfillTicker := time.NewTicker(30 * time.Second)
	defer backfillTicker.Stop()
	backfillStop := make(chan struct{})
	go func() {
		for {
			select {
			case <-backfillStop:
				return
			case <-backfillTicker.C:
				backfillFinishedTables(ctx, tables, snapshotter)
				reportActiveTableGauge(ctx, tables)
			}
		}
	}()

	go func() {
		log.Printf("gametable-server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("shutting down gametable-server...")
	close(backfillStop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// backfillFinishedTables drives Snapshotter.BackfillSnapshots for every
// in-progress table, the same eager-snapshot sweep the original system ran
// out of a periodic Celery task rather than on every single event append.
func backfillFinishedTables(ctx context.Context, tables storage.GameTableRepository, snapshotter *tasklock.Snapshotter) {
	inProgress := tableagg.StatusInProgress
	list, err := tables.FindMany(ctx, storage.TableFilter{Status: &inProgress})
	if err != nil {
		log.Printf("backfill sweep: list tables failed: %v", err)
		return
	}
	for _, t := range list {
		if err := snapshotter.BackfillSnapshots(ctx, t.ID); err != nil {
			log.Printf("backfill sweep: table %s: %v", t.ID, err)
		}
	}
}

// reportActiveTableGauge recomputes gametable_tables_active from storage
// rather than tracking join/leave deltas incrementally, the same
// recompute-on-a-timer shape the backfill sweep already uses.
func reportActiveTableGauge(ctx context.Context, tables storage.GameTableRepository) {
	for _, status := range []tableagg.Status{tableagg.StatusNotStarted, tableagg.StatusInProgress} {
		s := status
		list, err := tables.FindMany(ctx, storage.TableFilter{Status: &s})
		if err != nil {
			log.Printf("active-table gauge: list tables failed: %v", err)
			continue
		}
		counts := make(map[fivehundred.GameName]int)
		for _, t := range list {
			counts[t.GameName]++
		}
		for gameName, count := range counts {
			metrics.SetTablesActive(string(gameName), status.String(), float64(count))
		}
	}
}

// registerTableRoutes wires the REST surface for table lifecycle (create,
// list, fetch). Everything that happens once a player is seated — join,
// bidding, card play, bot turns — goes over the websocket fan-out instead,
// mirroring cmd/game-server/main.go's split between REST table bootstrap
// and websocket-driven gameplay.
func registerTableRoutes(router *gin.Engine, manager *tablemanager.TableManager, tables storage.GameTableRepository) {
	api := router.Group("/api/tables")

	api.POST("", func(c *gin.Context) {
		var req struct {
			GameName   string         `json:"game_name"`
			GameConfig map[string]any `json:"game_config"`
			OwnerID    string         `json:"owner_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		id, err := manager.AddTable(c.Request.Context(), fivehundred.GameName(req.GameName), req.GameConfig, nil, req.OwnerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	})

	api.GET("", func(c *gin.Context) {
		var status *tableagg.Status
		if raw := c.Query("status"); raw != "" {
			s, err := parseStatus(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			status = &s
		}
		var gameName *fivehundred.GameName
		if raw := c.Query("game_name"); raw != "" {
			gn := fivehundred.GameName(raw)
			gameName = &gn
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		list, err := tables.FindMany(c.Request.Context(), storage.TableFilter{
			Status: status, GameName: gameName, Limit: limit, Offset: offset,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tables": list})
	})

	api.GET("/:tableId", func(c *gin.Context) {
		table, err := manager.GetTable(c.Request.Context(), c.Param("tableId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, table)
	})

	api.DELETE("/:tableId", func(c *gin.Context) {
		ownerID := c.Query("owner_id")
		if err := manager.RemoveTable(c.Request.Context(), c.Param("tableId"), ownerID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func parseStatus(raw string) (tableagg.Status, error) {
	switch raw {
	case "not_started":
		return tableagg.StatusNotStarted, nil
	case "in_progress":
		return tableagg.StatusInProgress, nil
	default:
		return 0, fmt.Errorf("unknown status %q", raw)
	}
}

func respondError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *fivehundred.RulesError:
		c.JSON(http.StatusBadRequest, gin.H{"code": e.Code, "error": e.Message})
	case *fivehundred.InternalError:
		c.JSON(http.StatusInternalServerError, gin.H{"error": e.Reason})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	}
}
