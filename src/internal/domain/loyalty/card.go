package loyalty

import (
	"time"

	"github.com/jackyeh168/loyalty_crm/src/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ===========================
// LoyaltyCard 聚合根
// ===========================

// LoyaltyCard 會員卡聚合根：顧客在單一方案中的餘額
//
// 業務不變條件：
// - stampsCollected >= 0、pointsBalance >= 0
// - 依 cardType 只有一種餘額有意義，另一種保持零值
// - 每次餘額異動都伴隨恰好一筆新的 Transaction
// - 交易紀錄從零重放必須等於目前餘額（見 VerifyLedger）
// - 狀態轉換受 CardStatus.CanTransitionTo 限制，Expired 為終態
//
// 所有命令方法先完成驗證再修改狀態：
// 任何錯誤返回時，聚合根保持呼叫前的樣子。
type LoyaltyCard struct {
	cardID     CardID
	programID  ProgramID
	customerID CustomerID
	cardType   ProgramType // 建卡時從方案複製

	stampsCollected int
	pointsBalance   decimal.Decimal

	status    CardStatus
	qrCode    string
	expiresAt *time.Time

	createdAt time.Time
	updatedAt time.Time

	// 樂觀鎖版本號：0 表示尚未持久化，由倉儲在寫入成功後回寫
	version int

	transactions []*Transaction
	events       []shared.DomainEvent
}

// NewLoyaltyCard 顧客入會，建立新卡片
//
// 業務規則：
// - 卡片類型從方案複製，之後不隨方案變動
// - 停用中的方案不接受入會（ErrProgramInactive）
// - 初始餘額為 0、狀態為 Active
// - 發布 CardEnrolledEvent
func NewLoyaltyCard(program *LoyaltyProgram, customerID CustomerID) (*LoyaltyCard, error) {
	if program == nil {
		return nil, ErrInvalidProgram.WithContext("reason", "program is required")
	}
	if customerID.IsEmpty() {
		return nil, ErrInvalidCustomerID.WithContext("reason", "customer id cannot be empty")
	}
	if !program.IsActive() {
		return nil, ErrProgramInactive.WithContext(
			"program_id", program.ProgramID().String(),
			"operation", "enroll",
		)
	}

	ts := now()
	cardID := NewCardID()
	card := &LoyaltyCard{
		cardID:        cardID,
		programID:     program.ProgramID(),
		customerID:    customerID,
		cardType:      program.Type(),
		pointsBalance: decimal.Zero,
		status:        CardStatusActive,
		qrCode:        QRCodeFor(cardID),
		createdAt:     ts,
		updatedAt:     ts,
		transactions:  make([]*Transaction, 0),
		events:        make([]shared.DomainEvent, 0),
	}

	card.addEvent(&CardEnrolledEvent{
		cardEvent:  newCardEvent(cardID, ts),
		programID:  card.programID,
		customerID: customerID,
		cardType:   card.cardType,
	})
	return card, nil
}

// ReconstructLoyaltyCard 從持久化存儲重建卡片
//
// 載入歷史資料不重跑業務驗證，只檢查資料損壞：
// - ID 為空、類型或狀態未知
// - 負數餘額，或與卡片類型不符的餘額非零
// - QR Code 與卡片 ID 重新推導的結果不一致（空字串視為舊資料，直接重算）
// - 交易紀錄不屬於此卡片
//
// 餘額與交易重放是否一致由 VerifyLedger 另行檢查。
func ReconstructLoyaltyCard(
	cardID CardID,
	programID ProgramID,
	customerID CustomerID,
	cardType ProgramType,
	stampsCollected int,
	pointsBalance decimal.Decimal,
	status CardStatus,
	qrCode string,
	expiresAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
	version int,
	transactions []*Transaction,
) (*LoyaltyCard, error) {
	if cardID.IsEmpty() {
		return nil, ErrInvalidCardID.WithContext("reason", "invalid card id in database")
	}
	corrupted := func(keyValues ...interface{}) error {
		return ErrCorruptedCard.WithContext(append([]interface{}{"card_id", cardID.String()}, keyValues...)...)
	}
	if programID.IsEmpty() || customerID.IsEmpty() {
		return nil, corrupted("reason", "missing program or customer id")
	}
	if !cardType.IsValid() {
		return nil, corrupted("card_type", string(cardType))
	}
	if _, err := ParseCardStatus(string(status)); err != nil {
		return nil, corrupted("status", string(status))
	}
	if stampsCollected < 0 || pointsBalance.IsNegative() {
		return nil, corrupted(
			"stamps_collected", stampsCollected,
			"points_balance", pointsBalance.String(),
		)
	}
	if (cardType == ProgramTypeStamp && !pointsBalance.IsZero()) ||
		(cardType == ProgramTypePoints && stampsCollected != 0) {
		return nil, corrupted(
			"card_type", string(cardType),
			"stamps_collected", stampsCollected,
			"points_balance", pointsBalance.String(),
		)
	}
	expected := QRCodeFor(cardID)
	if qrCode != "" && qrCode != expected {
		return nil, corrupted("qr_code", qrCode, "expected_qr_code", expected)
	}
	if version < 0 {
		return nil, corrupted("version", version)
	}

	txs := make([]*Transaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx == nil {
			continue
		}
		if !tx.cardID.Equals(cardID) {
			return nil, corrupted(
				"transaction_id", tx.transactionID.String(),
				"transaction_card_id", tx.cardID.String(),
			)
		}
		txs = append(txs, tx)
	}

	return &LoyaltyCard{
		cardID:          cardID,
		programID:       programID,
		customerID:      customerID,
		cardType:        cardType,
		stampsCollected: stampsCollected,
		pointsBalance:   pointsBalance,
		status:          status,
		qrCode:          expected,
		expiresAt:       copyTime(expiresAt),
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		version:         version,
		transactions:    txs,
		events:          make([]shared.DomainEvent, 0),
	}, nil
}

// ===========================
// 查詢方法
// ===========================

func (c *LoyaltyCard) CardID() CardID                 { return c.cardID }
func (c *LoyaltyCard) ProgramID() ProgramID           { return c.programID }
func (c *LoyaltyCard) CustomerID() CustomerID         { return c.customerID }
func (c *LoyaltyCard) Type() ProgramType              { return c.cardType }
func (c *LoyaltyCard) StampsCollected() int           { return c.stampsCollected }
func (c *LoyaltyCard) PointsBalance() decimal.Decimal { return c.pointsBalance }
func (c *LoyaltyCard) Status() CardStatus             { return c.status }
func (c *LoyaltyCard) QRCode() string                 { return c.qrCode }
func (c *LoyaltyCard) ExpiresAt() *time.Time          { return copyTime(c.expiresAt) }
func (c *LoyaltyCard) CreatedAt() time.Time           { return c.createdAt }
func (c *LoyaltyCard) UpdatedAt() time.Time           { return c.updatedAt }
func (c *LoyaltyCard) Version() int                   { return c.version }

// IsActive 卡片是否可接受發放與兌換
func (c *LoyaltyCard) IsActive() bool {
	return c.status == CardStatusActive
}

// Transactions 交易紀錄（依寫入順序，返回副本切片）
func (c *LoyaltyCard) Transactions() []*Transaction {
	out := make([]*Transaction, len(c.transactions))
	copy(out, c.transactions)
	return out
}

// GetStampsIssuedToday 今日（UTC）發放的印章總數
//
// 只統計 StampIssuance，作廢不扣除；積分卡固定返回 0。
func (c *LoyaltyCard) GetStampsIssuedToday() int {
	if c.cardType != ProgramTypeStamp {
		return 0
	}
	y, m, d := now().UTC().Date()
	total := 0
	for _, tx := range c.transactions {
		if tx.transactionType != TransactionTypeStampIssuance {
			continue
		}
		ty, tm, td := tx.timestamp.UTC().Date()
		if ty == y && tm == m && td == d {
			total += tx.quantity
		}
	}
	return total
}

// VerifyLedger 重放交易紀錄並與目前餘額比對
func (c *LoyaltyCard) VerifyLedger() error {
	stamps, points := ReplayBalance(c.transactions)
	if stamps != c.stampsCollected || !points.Equal(c.pointsBalance) {
		return ErrLedgerMismatch.WithContext(
			"card_id", c.cardID.String(),
			"stamps_collected", c.stampsCollected,
			"replayed_stamps", stamps,
			"points_balance", c.pointsBalance.String(),
			"replayed_points", points.String(),
		)
	}
	return nil
}

// EnsureProgram 確認卡片屬於該方案且類型一致
//
// 卡片類型在開卡時自方案複製，之後兩者不得分歧。
func (c *LoyaltyCard) EnsureProgram(program *LoyaltyProgram) error {
	if program == nil || !program.programID.Equals(c.programID) {
		return ErrCorruptedCard.WithContext(
			"card_id", c.cardID.String(),
			"program_id", c.programID.String(),
			"reason", "card loaded with another program",
		)
	}
	if program.programType != c.cardType {
		return ErrProgramTypeMismatch.WithContext(
			"card_id", c.cardID.String(),
			"program_id", c.programID.String(),
			"card_type", string(c.cardType),
			"program_type", string(program.programType),
		)
	}
	return nil
}

// VerifyQRCode 比對外部提供的 QR Code 是否屬於此卡片
func (c *LoyaltyCard) VerifyQRCode(code string) bool {
	return code != "" && code == QRCodeFor(c.cardID)
}

// ===========================
// 事件管理
// ===========================

func (c *LoyaltyCard) addEvent(event shared.DomainEvent) {
	c.events = append(c.events, event)
}

// PullEvents 獲取所有待發布事件並清空列表
//
// 由 Ledger Service 在事務提交後調用，事件只會被取出一次。
func (c *LoyaltyCard) PullEvents() []shared.DomainEvent {
	events := c.events
	c.events = make([]shared.DomainEvent, 0)
	return events
}

// SyncVersion 倉儲寫入成功後回寫版本號
func (c *LoyaltyCard) SyncVersion(version int) {
	c.version = version
}

// ===========================
// 命令方法：餘額異動
// ===========================

// IssueStamps 發放印章
//
// 檢查順序：卡片類型 → 狀態 → 數量 → 門市
// 錯誤：ErrWrongCardType, ErrCardNotActive, ErrInvalidQuantity, ErrMissingStore
func (c *LoyaltyCard) IssueStamps(
	quantity int,
	storeID StoreID,
	staffID StaffID,
	posTransactionID string,
) (*Transaction, error) {
	const op = "issue_stamps"
	if err := c.requireType(ProgramTypeStamp, op); err != nil {
		return nil, err
	}
	if err := c.requireActive(op); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity.WithContext("card_id", c.cardID.String(), "operation", op, "quantity", quantity)
	}
	if err := c.requireStore(storeID, op); err != nil {
		return nil, err
	}

	tx := c.appendTransaction(transactionDraft{
		transactionType:  TransactionTypeStampIssuance,
		quantity:         quantity,
		storeID:          storeID,
		staffID:          staffID,
		posTransactionID: posTransactionID,
	})
	c.stampsCollected += quantity

	c.addEvent(&StampsIssuedEvent{
		cardEvent:     newCardEvent(c.cardID, tx.timestamp),
		transactionID: tx.transactionID,
		quantity:      quantity,
		balance:       c.stampsCollected,
		storeID:       storeID,
	})
	return tx, nil
}

// AddPoints 積分入帳
//
// pointsAmount 由呼叫者計算（通常是 LoyaltyProgram.CalculatePoints），卡片不重算。
// 積分與金額最多 AmountScale 位小數。
//
// 檢查順序：卡片類型 → 狀態 → 積分 → 消費金額 → 門市
// 錯誤：ErrWrongCardType, ErrCardNotActive, ErrInvalidPointsAmount,
// ErrInvalidTransactionAmount, ErrMissingStore
func (c *LoyaltyCard) AddPoints(
	pointsAmount decimal.Decimal,
	transactionAmount decimal.Decimal,
	storeID StoreID,
	staffID StaffID,
	posTransactionID string,
) (*Transaction, error) {
	const op = "add_points"
	if err := c.requireType(ProgramTypePoints, op); err != nil {
		return nil, err
	}
	if err := c.requireActive(op); err != nil {
		return nil, err
	}
	if !pointsAmount.IsPositive() || exceedsAmountScale(pointsAmount) {
		return nil, ErrInvalidPointsAmount.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"points_amount", pointsAmount.String(),
		)
	}
	if transactionAmount.IsNegative() || exceedsAmountScale(transactionAmount) {
		return nil, ErrInvalidTransactionAmount.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"transaction_amount", transactionAmount.String(),
		)
	}
	if err := c.requireStore(storeID, op); err != nil {
		return nil, err
	}

	tx := c.appendTransaction(transactionDraft{
		transactionType:   TransactionTypePointsIssuance,
		pointsAmount:      pointsAmount,
		transactionAmount: transactionAmount,
		storeID:           storeID,
		staffID:           staffID,
		posTransactionID:  posTransactionID,
	})
	c.pointsBalance = c.pointsBalance.Add(pointsAmount)

	c.addEvent(&PointsAddedEvent{
		cardEvent:         newCardEvent(c.cardID, tx.timestamp),
		transactionID:     tx.transactionID,
		pointsAmount:      pointsAmount,
		transactionAmount: transactionAmount,
		balance:           c.pointsBalance,
		storeID:           storeID,
	})
	return tx, nil
}

// RedeemReward 兌換獎勵
//
// 檢查順序：狀態 → 獎勵所屬方案 → 獎勵啟用 → 有效期間 → 門市 → 餘額
// 錯誤：ErrCardNotActive, ErrRewardProgramMismatch, ErrRewardInactive,
// ErrRewardNotValidAtTime, ErrMissingStore, ErrInsufficientBalance
//
// 餘額可以剛好扣到 0，但不會變成負數。
func (c *LoyaltyCard) RedeemReward(reward *Reward, storeID StoreID, staffID StaffID) (*Transaction, error) {
	const op = "redeem_reward"
	if reward == nil {
		return nil, ErrInvalidReward.WithContext("card_id", c.cardID.String(), "operation", op)
	}
	if err := c.requireActive(op); err != nil {
		return nil, err
	}
	if !reward.programID.Equals(c.programID) {
		return nil, ErrRewardProgramMismatch.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"reward_id", reward.rewardID.String(),
			"reward_program_id", reward.programID.String(),
			"card_program_id", c.programID.String(),
		)
	}
	if !reward.isActive {
		return nil, ErrRewardInactive.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"reward_id", reward.rewardID.String(),
		)
	}
	ts := now()
	if !reward.IsValidAt(ts) {
		return nil, ErrRewardNotValidAtTime.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"reward_id", reward.rewardID.String(),
			"at", ts.Format(time.RFC3339),
		)
	}
	if err := c.requireStore(storeID, op); err != nil {
		return nil, err
	}

	required := reward.requiredValue
	draft := transactionDraft{
		transactionType: TransactionTypeRewardRedemption,
		rewardID:        reward.rewardID,
		redeemedValue:   required,
		storeID:         storeID,
		staffID:         staffID,
	}
	switch c.cardType {
	case ProgramTypeStamp:
		if c.stampsCollected < required {
			return nil, c.insufficient(op, c.stampsCollected, required)
		}
		draft.quantity = required
	default:
		requiredPoints := decimal.NewFromInt(int64(required))
		if c.pointsBalance.LessThan(requiredPoints) {
			return nil, c.insufficient(op, c.pointsBalance.String(), required)
		}
		draft.pointsAmount = requiredPoints
	}

	tx := c.appendTransaction(draft)
	c.stampsCollected -= tx.quantity
	c.pointsBalance = c.pointsBalance.Sub(tx.pointsAmount)

	c.addEvent(&RewardRedeemedEvent{
		cardEvent:       newCardEvent(c.cardID, tx.timestamp),
		transactionID:   tx.transactionID,
		rewardID:        reward.rewardID,
		redeemedValue:   required,
		remainingStamps: c.stampsCollected,
		remainingPoints: c.pointsBalance,
		storeID:         storeID,
	})
	return tx, nil
}

// VoidStamps 作廢已發放的印章（如 POS 退貨）
//
// 檢查順序：卡片類型 → 狀態 → 數量 → 門市 → 餘額
func (c *LoyaltyCard) VoidStamps(
	quantity int,
	storeID StoreID,
	staffID StaffID,
	posTransactionID string,
) (*Transaction, error) {
	const op = "void_stamps"
	if err := c.requireType(ProgramTypeStamp, op); err != nil {
		return nil, err
	}
	if err := c.requireActive(op); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity.WithContext("card_id", c.cardID.String(), "operation", op, "quantity", quantity)
	}
	if err := c.requireStore(storeID, op); err != nil {
		return nil, err
	}
	if c.stampsCollected < quantity {
		return nil, c.insufficient(op, c.stampsCollected, quantity)
	}

	tx := c.appendTransaction(transactionDraft{
		transactionType:  TransactionTypeStampVoid,
		quantity:         quantity,
		storeID:          storeID,
		staffID:          staffID,
		posTransactionID: posTransactionID,
	})
	c.stampsCollected -= quantity

	c.addEvent(&StampsVoidedEvent{
		cardEvent:     newCardEvent(c.cardID, tx.timestamp),
		transactionID: tx.transactionID,
		quantity:      quantity,
		balance:       c.stampsCollected,
	})
	return tx, nil
}

// VoidPoints 作廢已入帳的積分（規則同 VoidStamps）
func (c *LoyaltyCard) VoidPoints(
	pointsAmount decimal.Decimal,
	storeID StoreID,
	staffID StaffID,
	posTransactionID string,
) (*Transaction, error) {
	const op = "void_points"
	if err := c.requireType(ProgramTypePoints, op); err != nil {
		return nil, err
	}
	if err := c.requireActive(op); err != nil {
		return nil, err
	}
	if !pointsAmount.IsPositive() || exceedsAmountScale(pointsAmount) {
		return nil, ErrInvalidPointsAmount.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"points_amount", pointsAmount.String(),
		)
	}
	if err := c.requireStore(storeID, op); err != nil {
		return nil, err
	}
	if c.pointsBalance.LessThan(pointsAmount) {
		return nil, c.insufficient(op, c.pointsBalance.String(), pointsAmount.String())
	}

	tx := c.appendTransaction(transactionDraft{
		transactionType:  TransactionTypePointsVoid,
		pointsAmount:     pointsAmount,
		storeID:          storeID,
		staffID:          staffID,
		posTransactionID: posTransactionID,
	})
	c.pointsBalance = c.pointsBalance.Sub(pointsAmount)

	c.addEvent(&PointsVoidedEvent{
		cardEvent:     newCardEvent(c.cardID, tx.timestamp),
		transactionID: tx.transactionID,
		pointsAmount:  pointsAmount,
		balance:       c.pointsBalance,
	})
	return tx, nil
}

// ===========================
// 命令方法：狀態與到期日
// ===========================

// Suspend 停用卡片（已停用時為 no-op）
//
// 已到期的卡片無法停用（ErrInvalidStatusTransition）。
func (c *LoyaltyCard) Suspend() error {
	if c.status == CardStatusSuspended {
		return nil
	}
	return c.transitionTo(CardStatusSuspended, "suspend")
}

// Reactivate 恢復卡片，只允許從 Suspended 轉換
func (c *LoyaltyCard) Reactivate() error {
	if c.status != CardStatusSuspended {
		return ErrInvalidStatusTransition.WithContext(
			"card_id", c.cardID.String(),
			"operation", "reactivate",
			"from", string(c.status),
			"to", string(CardStatusActive),
		)
	}
	return c.transitionTo(CardStatusActive, "reactivate")
}

// Expire 將卡片設為到期（終態；已到期時為 no-op）
func (c *LoyaltyCard) Expire() {
	if c.status == CardStatusExpired {
		return
	}
	// Active 與 Suspended 都允許轉為 Expired
	_ = c.transitionTo(CardStatusExpired, "expire")
}

// SetExpirationDate 設定到期日，必須嚴格晚於當前時間
//
// 到期日只是資料；實際轉為 Expired 由外部排程呼叫 Expire()。
func (c *LoyaltyCard) SetExpirationDate(expiresAt time.Time) error {
	ts := now()
	if !expiresAt.After(ts) {
		return ErrInvalidExpirationDate.WithContext(
			"card_id", c.cardID.String(),
			"operation", "set_expiration_date",
			"expires_at", expiresAt.Format(time.RFC3339),
		)
	}
	at := expiresAt.UTC()
	c.expiresAt = &at
	c.updatedAt = ts
	return nil
}

// ===========================
// 私有輔助方法
// ===========================

func (c *LoyaltyCard) transitionTo(target CardStatus, op string) error {
	if !c.status.CanTransitionTo(target) {
		return ErrInvalidStatusTransition.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"from", string(c.status),
			"to", string(target),
		)
	}
	from := c.status
	ts := now()
	c.status = target
	c.updatedAt = ts
	c.addEvent(&CardStatusChangedEvent{
		cardEvent: newCardEvent(c.cardID, ts),
		from:      from,
		to:        target,
	})
	return nil
}

// appendTransaction 建立交易並加入紀錄；呼叫前必須完成所有驗證
func (c *LoyaltyCard) appendTransaction(d transactionDraft) *Transaction {
	ts := now()
	tx := newTransaction(c.cardID, d, ts)
	c.transactions = append(c.transactions, tx)
	c.updatedAt = ts
	return tx
}

func (c *LoyaltyCard) requireType(expected ProgramType, op string) error {
	if c.cardType != expected {
		return ErrWrongCardType.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"card_type", string(c.cardType),
		)
	}
	return nil
}

func (c *LoyaltyCard) requireActive(op string) error {
	if c.status != CardStatusActive {
		return ErrCardNotActive.WithContext(
			"card_id", c.cardID.String(),
			"operation", op,
			"status", string(c.status),
		)
	}
	return nil
}

func (c *LoyaltyCard) requireStore(storeID StoreID, op string) error {
	if storeID.IsEmpty() {
		return ErrMissingStore.WithContext("card_id", c.cardID.String(), "operation", op)
	}
	return nil
}

func (c *LoyaltyCard) insufficient(op string, balance, required interface{}) error {
	return ErrInsufficientBalance.WithContext(
		"card_id", c.cardID.String(),
		"operation", op,
		"balance", balance,
		"required", required,
	)
}
