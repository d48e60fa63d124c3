package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// Task is a periodic maintenance function run by the Manager.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Manager owns the queue lifecycle and the periodic maintenance tasks.
type Manager struct {
	queue   *Queue
	tasks   []Task
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewManager(queue *Queue, tasks ...Task) *Manager {
	return &Manager{queue: queue, tasks: tasks}
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	if m.queue != nil {
		m.queue.Start()
	}
	for _, task := range m.tasks {
		if task.Interval <= 0 || task.Run == nil {
			continue
		}
		m.wg.Add(1)
		go m.runTask(task)
	}
}

func (m *Manager) runTask(task Task) {
	defer m.wg.Done()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), task.Interval)
			if err := task.Run(ctx); err != nil {
				log.Errorf("[JobQueue Manager] Task %s failed: %v", task.Name, err)
			}
			cancel()
		}
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	close(m.stopCh)
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	if m.queue != nil {
		m.queue.Stop()
	}
	log.Info("[JobQueue Manager] Stopped")
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
