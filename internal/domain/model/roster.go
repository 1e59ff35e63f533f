package model

import "time"

// Calendar event types and statuses that count towards adherence.
const (
	EventTypeTrainingSession   = "training_session"
	EventTypeStructuredSession = "structured_session"
	ParticipantConfirmed       = "confirmed"
)

// Player is a coached player.
type Player struct {
	ID        string `gorm:"column:id;primaryKey;size:64"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	CoachID   string `gorm:"column:coach_id;size:64;index"`
	// DataGolfName links the player to professional approach data, if mapped.
	DataGolfName string `gorm:"column:datagolf_name;size:191"`
}

// TableName pins the gorm table name.
func (Player) TableName() string { return "players" }

// FullName joins first and last name.
func (p Player) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// TestResult is a single skill-test measurement for a player.
type TestResult struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID   string    `gorm:"column:player_id;size:64;index:idx_test_results_player_date"`
	TestNumber int       `gorm:"column:test_number"`
	Value      float64   `gorm:"column:value"`
	TestDate   time.Time `gorm:"column:test_date;index:idx_test_results_player_date"`
}

// TableName pins the gorm table name.
func (TestResult) TableName() string { return "test_results" }

// TestComponentMapping assigns a skill test to one component with an aggregation weight.
type TestComponentMapping struct {
	TestNumber int     `gorm:"column:test_number;primaryKey;autoIncrement:false"`
	Component  string  `gorm:"column:component;size:8"`
	Weight     float64 `gorm:"column:weight"`
}

// TableName pins the gorm table name.
func (TestComponentMapping) TableName() string { return "test_component_mappings" }

// CalendarEvent is a player's participation in a calendar event.
type CalendarEvent struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PlayerID  string    `gorm:"column:player_id;size:64;index"`
	EventType string    `gorm:"column:event_type;size:32"`
	Status    string    `gorm:"column:status;size:16"`
	StartTime time.Time `gorm:"column:start_time;index"`
}

// TableName pins the gorm table name.
func (CalendarEvent) TableName() string { return "calendar_events" }
