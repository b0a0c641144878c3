package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/loyalty"
	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultMaxAttempts = 3
	defaultEventBuffer = 1024
	publishTimeout     = 3 * time.Second
)

// CardLocker 單卡互斥鎖
//
// Lock 在 ctx 取消或等待逾時時返回錯誤；成功時返回的 unlock 必須呼叫且可重複呼叫。
type CardLocker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// ===========================
// Ledger Service
// ===========================

// Service 帳本服務
//
// 每個卡片命令的流程：
// 1. 取得卡片鎖（未設定 locker 時只靠樂觀鎖）
// 2. 事務內：載入卡片（與方案、獎勵）→ 呼叫卡片命令 → 以版本比對寫入卡片與新交易
// 3. 提交並釋放鎖後，把領域事件交給背景 goroutine 投遞（失敗只記日誌，不影響已提交的結果）
//
// ErrVersionConflict 時從重新載入開始整個重試，最多 maxAttempts 次。
type Service struct {
	cardRepo    loyalty.CardRepository
	programRepo loyalty.ProgramRepository
	txManager   shared.TransactionManager
	locker      CardLocker
	publisher   shared.EventPublisher
	dispatcher  *eventDispatcher
	logger      *zap.Logger
	maxAttempts int
	eventBuffer int
}

// Option Service 選項
type Option func(*Service)

// WithLocker 設定卡片鎖
func WithLocker(locker CardLocker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithPublisher 設定事件發布器
func WithPublisher(publisher shared.EventPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLogger 設定日誌
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAttempts 版本衝突時的最大嘗試次數（含第一次）
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithEventBuffer 待投遞事件的緩衝數量；滿了之後新事件丟棄並記日誌
func WithEventBuffer(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.eventBuffer = n
		}
	}
}

// NewService 建立帳本服務
//
// 設定了 publisher 時會啟動投遞 goroutine，結束前呼叫 Close。
func NewService(
	cardRepo loyalty.CardRepository,
	programRepo loyalty.ProgramRepository,
	txManager shared.TransactionManager,
	opts ...Option,
) *Service {
	s := &Service{
		cardRepo:    cardRepo,
		programRepo: programRepo,
		txManager:   txManager,
		locker:      noopLocker{},
		logger:      zap.NewNop(),
		maxAttempts: defaultMaxAttempts,
		eventBuffer: defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher != nil {
		s.dispatcher = newEventDispatcher(s.publisher, s.logger, s.eventBuffer)
	}
	return s
}

// cardMutation 在事務內對已載入的卡片與其方案執行命令，返回新交易（可為 nil）
//
// 進入前已確認卡片與方案的類型一致。
type cardMutation func(card *loyalty.LoyaltyCard, program *loyalty.LoyaltyProgram) (*loyalty.Transaction, error)

// mutateCard 卡片命令的共用流程：鎖 → 事務 → 版本寫入 → 重試 → 釋放鎖 → 交付事件
func (s *Service) mutateCard(ctx context.Context, op string, cardID loyalty.CardID, mutate cardMutation) (*CardResult, error) {
	card, newTx, err := s.commitCard(ctx, op, cardID, mutate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.dispatch(op, card.PullEvents())
	return toCardResult(card, newTx), nil
}

// commitCard 持有卡片鎖完成載入、命令與寫入；返回時鎖已釋放
func (s *Service) commitCard(ctx context.Context, op string, cardID loyalty.CardID, mutate cardMutation) (*loyalty.LoyaltyCard, *loyalty.Transaction, error) {
	unlock, err := s.locker.Lock(ctx, cardID.String())
	if err != nil {
		return nil, nil, fmt.Errorf("acquire card lock: %w", err)
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		var (
			card  *loyalty.LoyaltyCard
			newTx *loyalty.Transaction
		)
		err := s.txManager.InTransaction(ctx, func(txCtx shared.TransactionContext) error {
			loaded, err := s.cardRepo.FindByID(txCtx, cardID)
			if err != nil {
				return err
			}
			program, err := s.programRepo.FindByID(txCtx, loaded.ProgramID())
			if err != nil {
				return err
			}
			if err := loaded.EnsureProgram(program); err != nil {
				return err
			}
			tx, err := mutate(loaded, program)
			if err != nil {
				return err
			}
			if err := s.cardRepo.Update(txCtx, loaded, tx); err != nil {
				return err
			}
			card, newTx = loaded, tx
			return nil
		})

		if err == nil {
			s.logger.Info("ledger_command_committed",
				zap.String("operation", op),
				zap.String("card_id", cardID.String()),
				zap.Int("version", card.Version()),
				zap.Int("attempt", attempt),
			)
			return card, newTx, nil
		}

		if errors.Is(err, loyalty.ErrVersionConflict) && attempt < s.maxAttempts {
			s.logger.Warn("ledger_version_conflict_retry",
				zap.String("operation", op),
				zap.String("card_id", cardID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, nil, err
	}
}

// dispatch 把已提交命令的事件交給背景投遞，不等待結果
func (s *Service) dispatch(op string, events []shared.DomainEvent) {
	if s.dispatcher == nil || len(events) == 0 {
		return
	}
	s.dispatcher.enqueue(op, events)
}

// Close 停止接收新事件並等待已排隊的事件投遞完畢
func (s *Service) Close(ctx context.Context) error {
	if s.dispatcher == nil {
		return nil
	}
	return s.dispatcher.close(ctx)
}
