package model

import (
    "encoding/json"
    "time"
)

// CommissionMode says whether the marketplace fee is already part of the
// ticket price or charged on top of it.
type CommissionMode string

const (
    CommissionIncluded   CommissionMode = "included"
    CommissionAddedOnTop CommissionMode = "added_on_top"
)

// Valid reports whether m is a known commission mode.
func (m CommissionMode) Valid() bool {
    return m == CommissionIncluded || m == CommissionAddedOnTop
}

// EventSeating is a published seating layout for one event.  Sections and
// seats are immutable once published; only seat status changes afterwards.
type EventSeating struct {
    ID               string         `json:"id"`
    EventID          string         `json:"event_id"`
    Name             string         `json:"name,omitempty"`
    CommissionMode   CommissionMode `json:"commission_mode,omitempty"`
    CommissionRate   *float64       `json:"commission_rate,omitempty"` // percent, 5 means 5%
    TargetPriceCents *int64         `json:"target_price_cents,omitempty"`
    HoldTTL          time.Duration  `json:"hold_ttl,omitempty"`
    Sections         []Section      `json:"sections"`
    PublishedAt      time.Time      `json:"published_at"`
}

// Section groups rows of seats.  Geometry and Metadata belong to the chart
// renderer and are carried through untouched.
type Section struct {
    ID       string          `json:"id"`
    Name     string          `json:"name"`
    Geometry json.RawMessage `json:"geometry,omitempty"`
    Metadata json.RawMessage `json:"metadata,omitempty"`
    Rows     []Row           `json:"rows"`
}

// Row is one labelled row of seats inside a section.
type Row struct {
    Label string    `json:"label"`
    Seats []SeatDef `json:"seats"`
}

// SeatDef is the static layout definition of a seat.
type SeatDef struct {
    UID        string     `json:"seat_uid"`
    Label      string     `json:"label"`
    BaseStatus BaseStatus `json:"base_status,omitempty"`
}

// SeatLocation is where a seat sits in the layout.
type SeatLocation struct {
    SeatUID   string
    SectionID string
    RowLabel  string
    SeatLabel string
}

// Section returns the section with the given id.
func (s *EventSeating) Section(id string) (*Section, bool) {
    for i := range s.Sections {
        if s.Sections[i].ID == id {
            return &s.Sections[i], true
        }
    }
    return nil, false
}

// Row returns the row with the given label.
func (sec *Section) Row(label string) (*Row, bool) {
    for i := range sec.Rows {
        if sec.Rows[i].Label == label {
            return &sec.Rows[i], true
        }
    }
    return nil, false
}

// Locations lists every seat of the layout in declaration order.
func (s *EventSeating) Locations() []SeatLocation {
    var out []SeatLocation
    for _, sec := range s.Sections {
        for _, row := range sec.Rows {
            for _, def := range row.Seats {
                out = append(out, SeatLocation{SeatUID: def.UID, SectionID: sec.ID, RowLabel: row.Label, SeatLabel: def.Label})
            }
        }
    }
    return out
}

// Locate finds a single seat in the layout.
func (s *EventSeating) Locate(seatUID string) (SeatLocation, bool) {
    for _, sec := range s.Sections {
        for _, row := range sec.Rows {
            for _, def := range row.Seats {
                if def.UID == seatUID {
                    return SeatLocation{SeatUID: def.UID, SectionID: sec.ID, RowLabel: row.Label, SeatLabel: def.Label}, true
                }
            }
        }
    }
    return SeatLocation{}, false
}

// InventorySeats builds the initial inventory records for the layout.  Seats
// with a structural base status start disabled.
func (s *EventSeating) InventorySeats() []Seat {
    var out []Seat
    for _, sec := range s.Sections {
        for _, row := range sec.Rows {
            for _, def := range row.Seats {
                st := SeatAvailable
                if def.BaseStatus == BaseStatusUnavailable {
                    st = SeatDisabled
                }
                out = append(out, Seat{
                    EventSeatingID: s.ID,
                    SeatUID:        def.UID,
                    SectionID:      sec.ID,
                    RowLabel:       row.Label,
                    SeatLabel:      def.Label,
                    Status:         st,
                    BaseStatus:     def.BaseStatus,
                })
            }
        }
    }
    return out
}
