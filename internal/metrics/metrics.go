package metrics

import (
	"log"
	"sync/atomic"
	"time"

	"notes-bot/internal/db"
)

// InteractionSnapshot is a periodic dump of the interaction counters, kept in
// the same database as everything else.
type InteractionSnapshot struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Timestamp     time.Time `gorm:"index" json:"timestamp"`
	Commands      int64     `gorm:"default:0" json:"commands"`
	Autocompletes int64     `gorm:"default:0" json:"autocompletes"`
	Modals        int64     `gorm:"default:0" json:"modals"`
	Buttons       int64     `gorm:"default:0" json:"buttons"`
	Errors        int64     `gorm:"default:0" json:"errors"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (InteractionSnapshot) TableName() string {
	return "interaction_snapshots"
}

// Running totals since process start. Incremented by the dispatcher.
var (
	Commands      int64
	Autocompletes int64
	Modals        int64
	Buttons       int64
	Errors        int64
)

func CountCommand()      { atomic.AddInt64(&Commands, 1) }
func CountAutocomplete() { atomic.AddInt64(&Autocompletes, 1) }
func CountModal()        { atomic.AddInt64(&Modals, 1) }
func CountButton()       { atomic.AddInt64(&Buttons, 1) }
func CountError()        { atomic.AddInt64(&Errors, 1) }

type Service struct {
	snapshotTicker *time.Ticker
	cleanupTicker  *time.Ticker
	done           chan bool
}

func NewService() *Service {
	return &Service{
		snapshotTicker: time.NewTicker(5 * time.Minute),
		cleanupTicker:  time.NewTicker(24 * time.Hour),
		done:           make(chan bool),
	}
}

func (s *Service) Start() {
	log.Println("Starting metrics service...")

	go func() {
		for {
			select {
			case <-s.snapshotTicker.C:
				s.saveSnapshot()

			case <-s.cleanupTicker.C:
				s.cleanup()

			case <-s.done:
				log.Println("Metrics service stopped")
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	log.Println("Stopping metrics service...")
	s.snapshotTicker.Stop()
	s.cleanupTicker.Stop()

	// Save final snapshot
	s.saveSnapshot()

	close(s.done)
}

func (s *Service) saveSnapshot() {
	snapshot := InteractionSnapshot{
		Timestamp:     time.Now(),
		Commands:      atomic.LoadInt64(&Commands),
		Autocompletes: atomic.LoadInt64(&Autocompletes),
		Modals:        atomic.LoadInt64(&Modals),
		Buttons:       atomic.LoadInt64(&Buttons),
		Errors:        atomic.LoadInt64(&Errors),
	}

	if err := db.DB.Create(&snapshot).Error; err != nil {
		log.Printf("Error saving interaction snapshot: %v", err)
	}
}

func (s *Service) cleanup() {
	// Keep snapshots for 7 days
	cutoff := time.Now().AddDate(0, 0, -7)

	result := db.DB.Where("timestamp < ?", cutoff).Delete(&InteractionSnapshot{})
	if result.Error != nil {
		log.Printf("Error cleaning up old snapshots: %v", result.Error)
	} else if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old interaction snapshots", result.RowsAffected)
	}
}
