package memory

import (
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
)

// ProgramRepository 記憶體版 loyalty.ProgramRepository
type ProgramRepository struct {
	store *Store
}

// NewProgramRepository 建立會員方案倉儲
func NewProgramRepository(store *Store) *ProgramRepository {
	return &ProgramRepository{store: store}
}

var _ loyalty.ProgramRepository = (*ProgramRepository)(nil)

func (r *ProgramRepository) Save(ctx shared.TransactionContext, program *loyalty.LoyaltyProgram) error {
	return r.put(ctx, program, true)
}

func (r *ProgramRepository) Update(ctx shared.TransactionContext, program *loyalty.LoyaltyProgram) error {
	return r.put(ctx, program, false)
}

func (r *ProgramRepository) FindByID(ctx shared.TransactionContext, programID loyalty.ProgramID) (*loyalty.LoyaltyProgram, error) {
	tx := r.store.txFrom(ctx)

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if tx != nil {
		if p, ok := tx.programs[programID]; ok {
			return snapshotProgram(p.program)
		}
	}
	program, ok := r.store.programs[programID]
	if !ok {
		return nil, loyalty.ErrProgramNotFound.WithContext("program_id", programID.String())
	}
	return snapshotProgram(program)
}

func (r *ProgramRepository) put(ctx shared.TransactionContext, program *loyalty.LoyaltyProgram, isNew bool) error {
	snap, err := snapshotProgram(program)
	if err != nil {
		return err
	}
	tx := r.store.txFrom(ctx)
	id := program.ProgramID()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, exists := r.store.programs[id]
	stagedNew := false
	if tx != nil {
		if p, ok := tx.programs[id]; ok {
			exists = true
			stagedNew = p.isNew
		}
	}
	switch {
	case isNew && exists:
		return loyalty.ErrRepositoryError.WithContext("program_id", id.String(), "reason", "duplicate program id")
	case !isNew && !exists:
		return loyalty.ErrProgramNotFound.WithContext("program_id", id.String())
	}

	if tx != nil {
		tx.programs[id] = &pendingProgram{program: snap, isNew: isNew || stagedNew}
	} else {
		r.store.programs[id] = snap
	}
	return nil
}
