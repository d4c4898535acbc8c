package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	// ErrConfiguration marks irreconcilable input constraints. Runs abort before assignment.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnassignable marks packages left over once every truck trip is exhausted.
	ErrUnassignable = errors.New("unassignable packages")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCorrectionApplied = errors.New("address correction already applied")
	ErrAlreadyDelivered  = errors.New("package already delivered")
	ErrCapacityExceeded  = errors.New("truck capacity exceeded")
	ErrPackageNotFound   = errors.New("package not found")
)

// ConfigError describes a constraint conflict found while classifying packages.
type ConfigError struct {
	Op     string
	Detail string
}

func NewConfigError(op string, format string, args ...any) *ConfigError {
	return &ConfigError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrConfiguration, e.Detail)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// UnplacedError lists the packages no truck trip could carry.
type UnplacedError struct {
	IDs []int
}

func NewUnplacedError(ids []int) *UnplacedError {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return &UnplacedError{IDs: sorted}
}

func (e *UnplacedError) Error() string {
	parts := make([]string, 0, len(e.IDs))
	for _, id := range e.IDs {
		parts = append(parts, fmt.Sprint(id))
	}
	return fmt.Sprintf("%v: package_ids=[%s]", ErrUnassignable, strings.Join(parts, ","))
}

func (e *UnplacedError) Unwrap() error { return ErrUnassignable }

// FeasibilityWarning flags a package delivered after its deadline.
// It is reported with the run result and never aborts a run.
type FeasibilityWarning struct {
	PackageID   int
	TruckID     int
	Deadline    time.Time
	DeliveredAt time.Time
}

func (w FeasibilityWarning) String() string {
	return fmt.Sprintf(
		"package %d on truck %d delivered %s, deadline %s (%s late)",
		w.PackageID, w.TruckID,
		w.DeliveredAt.Format("15:04"), w.Deadline.Format("15:04"),
		w.DeliveredAt.Sub(w.Deadline).Round(time.Second),
	)
}
