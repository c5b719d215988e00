// Package sla computes resolution deadlines for new tickets.
package sla

import (
	"time"

	"github.com/spec-kit/averias/internal/config"
	"github.com/spec-kit/averias/internal/domain"
)

// Policy maps priorities to resolution targets.
type Policy struct {
	hours map[domain.TicketPriority]int
}

// NewPolicy builds a policy from configuration, filling gaps with the defaults.
func NewPolicy(cfg config.SLAConfig) *Policy {
	p := &Policy{hours: map[domain.TicketPriority]int{
		domain.TicketPriorityLow:    72,
		domain.TicketPriorityMedium: 24,
		domain.TicketPriorityHigh:   8,
		domain.TicketPriorityUrgent: 4,
	}}
	set := func(pr domain.TicketPriority, h int) {
		if h > 0 {
			p.hours[pr] = h
		}
	}
	set(domain.TicketPriorityLow, cfg.LowHours)
	set(domain.TicketPriorityMedium, cfg.MediumHours)
	set(domain.TicketPriorityHigh, cfg.HighHours)
	set(domain.TicketPriorityUrgent, cfg.UrgentHours)
	return p
}

// Target returns the allowed resolution time. A positive category override wins.
func (p *Policy) Target(priority domain.TicketPriority, category *domain.Category) time.Duration {
	if category != nil && category.SLAHours != nil && *category.SLAHours > 0 {
		return time.Duration(*category.SLAHours) * time.Hour
	}
	h, ok := p.hours[priority]
	if !ok {
		h = p.hours[domain.TicketPriorityMedium]
	}
	return time.Duration(h) * time.Hour
}

// Deadline returns createdAt plus the target.
func (p *Policy) Deadline(createdAt time.Time, priority domain.TicketPriority, category *domain.Category) time.Time {
	return createdAt.Add(p.Target(priority, category))
}
