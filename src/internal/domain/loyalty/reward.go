package loyalty

import (
	"strings"
	"time"
)

// ===========================
// Reward 實體
// ===========================

// Reward 可兌換的獎勵項目
//
// RequiredValue 依方案類型代表所需印章數或積分數。
// 可兌換條件：IsActive 且當前時間落在 [ValidFrom, ValidTo]，
// 未設定的邊界視為無限制。
type Reward struct {
	rewardID      RewardID
	programID     ProgramID
	title         string
	description   string
	requiredValue int
	validFrom     *time.Time
	validTo       *time.Time
	isActive      bool
}

// NewReward 建立新獎勵（預設啟用）
//
// 建構約束：
// - programID 不可為空
// - title 不可為空
// - requiredValue > 0
// - validFrom 不得晚於 validTo
func NewReward(
	programID ProgramID,
	title string,
	description string,
	requiredValue int,
	validFrom *time.Time,
	validTo *time.Time,
) (*Reward, error) {
	return ReconstructReward(NewRewardID(), programID, title, description, requiredValue, validFrom, validTo, true)
}

// ReconstructReward 從持久化存儲重建獎勵（仍檢查建構約束，防止損壞資料）
func ReconstructReward(
	rewardID RewardID,
	programID ProgramID,
	title string,
	description string,
	requiredValue int,
	validFrom *time.Time,
	validTo *time.Time,
	isActive bool,
) (*Reward, error) {
	if rewardID.IsEmpty() {
		return nil, ErrInvalidRewardID.WithContext("reason", "reward id cannot be empty")
	}
	if programID.IsEmpty() {
		return nil, ErrInvalidProgramID.WithContext("reason", "reward must belong to a program")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidReward.WithContext("reason", "title cannot be empty")
	}
	if requiredValue <= 0 {
		return nil, ErrInvalidReward.WithContext("required_value", requiredValue)
	}
	if validFrom != nil && validTo != nil && validFrom.After(*validTo) {
		return nil, ErrInvalidReward.WithContext(
			"valid_from", validFrom.Format(time.RFC3339),
			"valid_to", validTo.Format(time.RFC3339),
		)
	}

	return &Reward{
		rewardID:      rewardID,
		programID:     programID,
		title:         title,
		description:   strings.TrimSpace(description),
		requiredValue: requiredValue,
		validFrom:     copyTime(validFrom),
		validTo:       copyTime(validTo),
		isActive:      isActive,
	}, nil
}

func (r *Reward) RewardID() RewardID    { return r.rewardID }
func (r *Reward) ProgramID() ProgramID  { return r.programID }
func (r *Reward) Title() string         { return r.title }
func (r *Reward) Description() string   { return r.description }
func (r *Reward) RequiredValue() int    { return r.requiredValue }
func (r *Reward) IsActive() bool        { return r.isActive }
func (r *Reward) ValidFrom() *time.Time { return copyTime(r.validFrom) }
func (r *Reward) ValidTo() *time.Time   { return copyTime(r.validTo) }

// IsValidAt 判斷時間點是否在有效期間內（含邊界）
func (r *Reward) IsValidAt(t time.Time) bool {
	if r.validFrom != nil && t.Before(*r.validFrom) {
		return false
	}
	if r.validTo != nil && t.After(*r.validTo) {
		return false
	}
	return true
}

// IsRedeemableAt 啟用且在有效期間內
func (r *Reward) IsRedeemableAt(t time.Time) bool {
	return r.isActive && r.IsValidAt(t)
}

// Activate 啟用獎勵
func (r *Reward) Activate() {
	r.isActive = true
}

// Deactivate 停用獎勵
func (r *Reward) Deactivate() {
	r.isActive = false
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
