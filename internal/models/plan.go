package models

import "time"

// PhaseStatus is the lifecycle of plans and programs.
type PhaseStatus string

const (
	PhaseScheduled PhaseStatus = "scheduled"
	PhaseActive    PhaseStatus = "active"
	PhaseCompleted PhaseStatus = "completed"
)

// Plan is a member's top-level training block, made of ordered Programs.
type Plan struct {
	ID        string      `json:"id"`
	MemberID  string      `json:"memberId"`
	Name      string      `json:"name,omitempty"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Status    PhaseStatus `json:"status"`
}

// Program is one phase of a Plan and owns Workouts.
type Program struct {
	ID        string      `json:"id"`
	PlanID    string      `json:"planId"`
	Name      string      `json:"name,omitempty"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Status    PhaseStatus `json:"status"`
}
