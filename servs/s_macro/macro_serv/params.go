package macro_serv

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Seat preferences
const (
	SeatsStandard = "standard"
	SeatsSpecial  = "special"
	SeatsBoth     = "both"
)

const (
	MinRow = 1
	MaxRow = 10
)

var ErrInvalidParams = errors.New("macro: invalid parameters")

// departureTimes are the 2-hour aligned slots the search form accepts.
var departureTimes = map[string]bool{
	"00": true, "02": true, "04": true, "06": true, "08": true, "10": true,
	"12": true, "14": true, "16": true, "18": true, "20": true, "22": true,
}

// Params is one reservation attempt handed to the worker.
type Params struct {
	Arrival   string `json:"arrival"`           // origin station
	Departure string `json:"departure"`         // destination station
	Date      string `json:"standard_date"`     // YYYYMMDD
	Time      string `json:"standard_time"`     // 00, 02, ..., 22
	Seats     string `json:"seat_types"`        // standard | special | both
	FromRow   int    `json:"from_train_number"` // first result row, 1-based
	ToRow     int    `json:"to_train_number"`   // last result row, inclusive
}

// Normalize trims input and fills the seat preference.
func (p Params) Normalize() Params {
	p.Arrival = strings.TrimSpace(p.Arrival)
	p.Departure = strings.TrimSpace(p.Departure)
	p.Date = strings.TrimSpace(p.Date)
	p.Time = strings.TrimSpace(p.Time)
	p.Seats = strings.ToLower(strings.TrimSpace(p.Seats))
	if p.Seats == "" {
		p.Seats = SeatsBoth
	}
	return p
}

// Validate reports the first problem with p.
func (p Params) Validate() error {
	if p.Arrival == "" || p.Departure == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrInvalidParams)
	}
	if p.FromRow > p.ToRow {
		return fmt.Errorf("%w: first row must not be after last row", ErrInvalidParams)
	}
	if p.FromRow < MinRow || p.FromRow > MaxRow || p.ToRow < MinRow || p.ToRow > MaxRow {
		return fmt.Errorf("%w: rows must be between %d and %d", ErrInvalidParams, MinRow, MaxRow)
	}
	if len(p.Date) != 8 {
		return fmt.Errorf("%w: date must be 8 digits (YYYYMMDD)", ErrInvalidParams)
	}
	if _, err := time.Parse("20060102", p.Date); err != nil {
		return fmt.Errorf("%w: date must be 8 digits (YYYYMMDD)", ErrInvalidParams)
	}
	if !departureTimes[p.Time] {
		return fmt.Errorf("%w: time must be one of 00,02,...,22", ErrInvalidParams)
	}
	switch p.Seats {
	case SeatsStandard, SeatsSpecial, SeatsBoth:
	default:
		return fmt.Errorf("%w: seats must be standard, special or both", ErrInvalidParams)
	}
	return nil
}

// SeatColumns returns the result-table columns to check, special first.
func (p Params) SeatColumns() []int {
	switch p.Seats {
	case SeatsStandard:
		return []int{7}
	case SeatsSpecial:
		return []int{6}
	default:
		return []int{6, 7}
	}
}
