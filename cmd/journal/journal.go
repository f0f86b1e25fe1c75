// cmd/journal/journal.go is an asynchronous journal worker that pops room
// activity records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"github.com/opopina/logiverse/internal/cache"
	"github.com/opopina/logiverse/internal/database"
)

// JournalService encapsulates the Redis + DB logic for archiving room
// activity and marking rooms abandoned after a period of inactivity.
type JournalService struct {
	redisClient  *redis.Client
	batchSize    int
	flushDelay   time.Duration
	inactivity   time.Duration // duration until a silent room is marked abandoned
	lastActivity sync.Map      // map[uuid.UUID]time.Time for tracking last activity per room

	batchMu  sync.Mutex
	batch    []cache.ActivityRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewJournalService constructs a JournalService instance from environment variables or defaults.
func NewJournalService() *JournalService {
	batchSize := getEnvInt("JOURNAL_BATCH_SIZE", 20)
	flushMs := getEnvInt("JOURNAL_FLUSH_MS", 500)
	inactivitySec := getEnvInt("ROOM_INACTIVITY_TIMEOUT_SEC", 1800) // default 30 min

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &JournalService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		inactivity:  time.Duration(inactivitySec) * time.Second,
		batch:       make([]cache.ActivityRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run starts the two main loops:
//  1. A loop that reads from the Redis queue, accumulates records in a batch, and flushes them to the DB.
//  2. A periodic check for inactivity to mark rooms as abandoned.
func (js *JournalService) Run() {
	database.ConnectDB()

	go js.readRedisLoop()
	go js.inactivityLoop()

	log.Println("logiverse-journal service started.")
	<-js.ctx.Done()
	log.Println("logiverse-journal shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve records from the Redis queue.
func (js *JournalService) readRedisLoop() {
	ticker := time.NewTicker(js.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("JOURNAL_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-js.ctx.Done():
			return

		case <-ticker.C:
			js.flushBatchToDB()

		default:
			// BLPop with a 3-second timeout so that context cancellation is handled.
			res, err := js.redisClient.BLPop(js.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				// No record popped.
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			payload := res[1]
			var record cache.ActivityRecord
			if err := json.Unmarshal([]byte(payload), &record); err != nil {
				log.Printf("invalid activity record: %v\n", err)
				continue
			}

			js.lastActivity.Store(record.RoomID, time.Now())

			js.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (js *JournalService) appendToBatch(record cache.ActivityRecord) {
	js.batchMu.Lock()
	defer js.batchMu.Unlock()

	js.batch = append(js.batch, record)
	if len(js.batch) >= js.batchSize {
		js.flushBatchToDB()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (js *JournalService) flushBatchToDB() {
	js.batchMu.Lock()
	defer js.batchMu.Unlock()

	if len(js.batch) == 0 {
		return
	}
	batchCopy := make([]cache.ActivityRecord, len(js.batch))
	copy(batchCopy, js.batch)
	js.batch = js.batch[:0]

	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertActivityTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertActivityTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d activity records to DB.\n", len(batchCopy))
	}
}

// inactivityLoop periodically checks if any room has been silent beyond the
// configured threshold, and marks such rooms as abandoned.
func (js *JournalService) inactivityLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-js.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()
			js.lastActivity.Range(func(key, val interface{}) bool {
				roomID, ok1 := key.(uuid.UUID)
				last, ok2 := val.(time.Time)
				if ok1 && ok2 && now.Sub(last) > js.inactivity {
					js.markRoomAbandoned(roomID)
					js.lastActivity.Delete(roomID)
				}
				return true
			})
		}
	}
}

// markRoomAbandoned closes a room that went silent while still marked open.
func (js *JournalService) markRoomAbandoned(roomID uuid.UUID) {
	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE rooms
			SET status = 'FINISHED'
			WHERE id = $1 AND status IN ('WAITING', 'FULL', 'PLAYING')
		`
		_, e := tx.Exec(ctx, q, roomID)
		return e
	})
	if err != nil {
		log.Printf("failed to mark room %v abandoned: %v", roomID, err)
	} else {
		log.Printf("Marked room %v abandoned due to inactivity.", roomID)
	}
}

// insertActivityTx inserts a single activity record into the room_activity table.
func insertActivityTx(ctx context.Context, tx pgx.Tx, rec cache.ActivityRecord) error {
	q := `
		INSERT INTO room_activity (
			room_id, actor_user_id, event_type, event_payload, occurred_at
		) VALUES ($1, $2, $3, $4, to_timestamp($5 / 1000.0))
	`
	jsonPayload, err := json.Marshal(rec.EventPayload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, q,
		rec.RoomID, rec.ActorUserID, rec.EventType, jsonPayload, rec.Timestamp,
	)
	return err
}

// beginTxFunc is a helper that starts a transaction using the provided pool,
// calls the function f with the transaction, and commits or rollbacks as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}

// Stop gracefully stops the journal service.
func (js *JournalService) Stop() {
	js.cancelFn()
}

func main() {
	js := NewJournalService()
	go js.Run()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	js.Stop()
	log.Println("Journal shutdown complete.")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
