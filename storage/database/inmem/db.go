// Package inmemdb provides in-memory repository implementations used by
// tests and local development. Each table is guarded by its own RWMutex.
package inmemdb

import (
	"sync"

	"github.com/trezcool/labtrack/core/audit"
	"github.com/trezcool/labtrack/core/class"
	"github.com/trezcool/labtrack/core/group"
	"github.com/trezcool/labtrack/core/lab"
	"github.com/trezcool/labtrack/core/queue"
)

type (
	labTable struct {
		mutex sync.RWMutex
		labs  map[string]lab.Lab
		defs  map[string][]lab.CheckpointDefinition // keyed by lab ID
	}

	classTable struct {
		mutex       sync.RWMutex
		classes     map[string]class.Class
		enrollments map[string]class.Enrollment
		roster      []class.RosterEntry
	}

	groupTable struct {
		mutex   sync.RWMutex
		groups  map[string]group.Group
		seq     map[string]int // insertion order, keyed by group ID
		nextSeq int
	}

	eventTable struct {
		mutex  sync.RWMutex
		events []audit.SignoffEvent
	}

	queueTable struct {
		mutex     sync.RWMutex
		items     map[string]queue.Item
		positions map[string]int // per-lab position counter; never decremented
	}

	DB struct {
		lab   *labTable
		class *classTable
		group *groupTable
		event *eventTable
		queue *queueTable
	}
)

func NewDB() *DB {
	return &DB{
		lab: &labTable{
			labs: map[string]lab.Lab{},
			defs: map[string][]lab.CheckpointDefinition{},
		},
		class: &classTable{
			classes:     map[string]class.Class{},
			enrollments: map[string]class.Enrollment{},
		},
		group: &groupTable{
			groups: map[string]group.Group{},
			seq:    map[string]int{},
		},
		event: &eventTable{},
		queue: &queueTable{
			items:     map[string]queue.Item{},
			positions: map[string]int{},
		},
	}
}
