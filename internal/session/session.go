package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/referral-labels/internal/labels"
	"github.com/referral-labels/internal/model"
)

var (
	ErrNotEditing     = errors.New("session is not in edit mode")
	ErrAlreadyEditing = errors.New("session is already in edit mode")
	ErrRowOutOfRange  = errors.New("row out of range")
)

// State is the persisted state of a session. Editing is a mode layered on
// top of it, see Controller.Editing.
type State int

const (
	StateClean State = iota
	StateDirty
)

func (s State) String() string {
	if s == StateDirty {
		return "dirty"
	}
	return "clean"
}

// Field names an editable label column.
type Field int

const (
	FieldOfficeName Field = iota
	FieldContactName
	FieldAddress1
	FieldAddress2
	FieldCity
	FieldState
	FieldZip
)

var fieldNames = []string{"officeName", "contactName", "address1", "address2", "city", "state", "zip"}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// ParseField accepts the JSON field names of MailingLabelData, in any case.
func ParseField(s string) (Field, error) {
	for i, name := range fieldNames {
		if strings.EqualFold(name, s) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown label field %q", s)
}

func setField(l *model.MailingLabelData, f Field, v string) error {
	switch f {
	case FieldOfficeName:
		l.OfficeName = v
	case FieldContactName:
		l.ContactName = v
	case FieldAddress1:
		l.Address1 = v
	case FieldAddress2:
		l.Address2 = v
	case FieldCity:
		l.City = v
	case FieldState:
		l.State = v
	case FieldZip:
		l.Zip = v
	default:
		return fmt.Errorf("unknown label field %v", f)
	}
	return nil
}

// BuildFunc derives label rows from records and filters.
type BuildFunc func([]model.RawOfficeRecord, labels.Filters) []model.MailingLabelData

// Controller tracks the label working set against its upstream baseline.
//
// While clean, the working set follows upstream changes. Once edits are saved
// the session is dirty and upstream changes no longer reach the working set
// until Reset.
type Controller struct {
	mu sync.Mutex

	build   BuildFunc
	records []model.RawOfficeRecord
	filters labels.Filters

	baseline []model.MailingLabelData
	working  []model.MailingLabelData
	draft    []model.MailingLabelData
	editing  bool
	dirty    bool

	// draftBase is the working set the draft was copied from.
	draftBase []model.MailingLabelData
}

// New builds the initial baseline. The session starts clean.
func New(build BuildFunc, records []model.RawOfficeRecord, filters labels.Filters) *Controller {
	c := &Controller{build: build}
	c.setInputs(records, filters)
	c.rebuild()
	return c
}

func (c *Controller) setInputs(records []model.RawOfficeRecord, filters labels.Filters) {
	c.records = slices.Clone(records)
	c.filters = filters
	c.filters.Tiers = slices.Clone(filters.Tiers)
}

func (c *Controller) rebuild() {
	c.baseline = c.build(c.records, c.filters)
	if c.baseline == nil {
		c.baseline = []model.MailingLabelData{}
	}
	c.working = model.CloneLabels(c.baseline)
}

// Refresh feeds new upstream inputs. It reports whether the baseline was
// recomputed: never while dirty, and not when inputs are unchanged by content.
// An open draft without edits is moved onto the rebuilt working set; an
// edited draft is left as is.
func (c *Controller) Refresh(records []model.RawOfficeRecord, filters labels.Filters) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.EqualFunc(c.records, records, model.RawOfficeRecord.Equal) && c.filters.Equal(filters) {
		return false
	}
	c.setInputs(records, filters)
	if c.dirty {
		return false
	}
	c.rebuild()
	if c.editing && slices.Equal(c.draft, c.draftBase) {
		c.draft = model.CloneLabels(c.working)
		c.draftBase = model.CloneLabels(c.working)
	}
	return true
}

// BeginEdit enters edit mode with a draft copy of the working set.
func (c *Controller) BeginEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editing {
		return ErrAlreadyEditing
	}
	c.editing = true
	c.draft = model.CloneLabels(c.working)
	c.draftBase = model.CloneLabels(c.working)
	return nil
}

// EditCell changes one field of one row in the draft.
func (c *Controller) EditCell(row int, field Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editing {
		return ErrNotEditing
	}
	if row < 0 || row >= len(c.draft) {
		return fmt.Errorf("%w: %d of %d", ErrRowOutOfRange, row, len(c.draft))
	}
	return setField(&c.draft[row], field, value)
}

// Save commits the draft as the working set. A draft with no edits leaves
// the working set alone. The session becomes dirty once saved edits make the
// working set differ from the baseline, and stays dirty until Reset.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editing {
		return ErrNotEditing
	}
	edited := !slices.Equal(c.draft, c.draftBase)
	draft := c.draft
	c.draft, c.draftBase = nil, nil
	c.editing = false
	if !edited {
		return nil
	}
	c.working = draft
	if !slices.Equal(c.working, c.baseline) {
		c.dirty = true
	}
	return nil
}

// Cancel discards the draft. A clean session keeps the baseline; a dirty one
// keeps its previously saved edits.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft, c.draftBase = nil, nil
	c.editing = false
	if !c.dirty {
		c.working = model.CloneLabels(c.baseline)
	}
}

// Reset discards all edits and rebuilds from the latest upstream inputs.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft, c.draftBase = nil, nil
	c.editing = false
	c.dirty = false
	c.rebuild()
}

func (c *Controller) Working() []model.MailingLabelData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneLabels(c.working)
}

func (c *Controller) Baseline() []model.MailingLabelData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneLabels(c.baseline)
}

// Draft returns the rows being edited, or nil outside edit mode.
func (c *Controller) Draft() []model.MailingLabelData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneLabels(c.draft)
}

func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *Controller) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editing
}

func (c *Controller) State() State {
	if c.Dirty() {
		return StateDirty
	}
	return StateClean
}

// Inputs returns the latest upstream records and filters.
func (c *Controller) Inputs() ([]model.RawOfficeRecord, labels.Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.filters
	f.Tiers = slices.Clone(c.filters.Tiers)
	return slices.Clone(c.records), f
}
