// Package tasks runs background work (recording uploads, cache purges,
// dictionary prefetch) on a sqlite-backed backlite queue.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/lingua/internal/config"
	"github.com/mrlokans/lingua/internal/logging"
	"github.com/mrlokans/lingua/internal/metrics"
)

// Enqueuer adds tasks to their queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
}

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client  *backlite.Client
	db      *sql.DB
	config  config.Tasks
	log     *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	started bool
}

var _ Enqueuer = (*Client)(nil)

// DatabasePath returns the tasks database stored alongside mainDBPath with
// a "-tasks" suffix.
func DatabasePath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".db"
	}
	return filepath.Join(dir, name+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database.
func NewClient(tasksDBPath string, cfg config.Tasks, log *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	// Open dedicated SQLite connection for tasks with WAL mode
	db, err := sql.Open("sqlite3", tasksDBPath+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	// Configure connection pool for concurrent workers
	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          logging.NewTaskLogger(log),
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client:  client,
		db:      db,
		config:  cfg,
		log:     log.Named("tasks"),
		metrics: m,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks. It does not block.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.log.Info("task queue started", zap.Int("workers", c.config.Workers))
	c.client.Start(ctx)
}

func (c *Client) Started() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.started
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.Started() {
		return true
	}

	c.log.Info("stopping task queue")
	success := c.client.Stop(ctx)
	if success {
		c.log.Info("task queue stopped gracefully")
	} else {
		c.log.Warn("task queue stopped with timeout, some tasks may not have completed")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Enqueue saves tasks and counts them per queue.
func (c *Client) Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error) {
	ids, err := c.client.Add(tasks...).Ctx(ctx).Save()
	if err != nil {
		return nil, fmt.Errorf("enqueue tasks: %w", err)
	}
	for _, t := range tasks {
		c.metrics.TaskEnqueued(t.Config().Name)
	}
	return ids, nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// Ping checks the tasks database connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
