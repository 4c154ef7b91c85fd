// unit_of_work.go
//
// Transit network coordination service: ledger, topology, booking and search
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of traits.
// traits is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// traits is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with traits.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"log"

	"github.com/localnerve/traits/internal/metrics"
	"github.com/localnerve/traits/internal/types"
)

// step is one write of a cross-store operation and the write that undoes it
type step struct {
	name       string
	apply      func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// unitOfWork applies ordered steps across the ledger and the graph. When a step fails
// after earlier steps were applied, those are compensated in reverse order.
type unitOfWork struct {
	op    string
	key   string
	steps []step
}

func newUnitOfWork(op, key string) *unitOfWork {
	return &unitOfWork{op: op, key: key}
}

// Step appends a write. compensate may be nil for a final step.
func (u *unitOfWork) Step(name string, apply, compensate func(ctx context.Context) error) *unitOfWork {
	u.steps = append(u.steps, step{name: name, apply: apply, compensate: compensate})
	return u
}

// Run applies the steps. A failure of the first step is returned as is, since nothing
// needs undoing. A later failure returns a *types.ConsistencyError.
func (u *unitOfWork) Run(ctx context.Context) error {
	for i, s := range u.steps {
		err := s.apply(ctx)
		if err == nil {
			continue
		}
		if i == 0 {
			return err
		}

		log.Printf("%s %s: step %q failed, compensating %d step(s): %v", u.op, u.key, s.name, i, err)
		return u.compensate(ctx, i, err)
	}
	return nil
}

func (u *unitOfWork) compensate(ctx context.Context, applied int, cause error) error {
	// Compensation must run even if the caller's context is already done
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for i := applied - 1; i >= 0; i-- {
		s := u.steps[i]
		if s.compensate == nil {
			continue
		}
		if err := s.compensate(ctx); err != nil {
			log.Printf("%s %s: compensation of step %q failed: %v", u.op, u.key, s.name, err)
			errs = append(errs, err)
		}
	}

	cerr := &types.ConsistencyError{
		Op:              u.op,
		Key:             u.key,
		Cause:           cause,
		CompensationErr: errors.Join(errs...),
	}

	outcome := metrics.OutcomeCompensated
	if cerr.Degraded() {
		outcome = metrics.OutcomeDegraded
	}
	metrics.Compensations.WithLabelValues(u.op, outcome).Inc()

	return cerr
}
