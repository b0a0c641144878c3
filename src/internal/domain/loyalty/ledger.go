package loyalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// qrCodePrefix 卡片 QR Code 前綴
const qrCodePrefix = "LC-"

// ReplayBalance 從零重放交易紀錄，返回印章數與積分餘額
//
// 重放規則：
//   StampIssuance    +quantity
//   PointsIssuance   +pointsAmount
//   StampVoid        -quantity
//   PointsVoid       -pointsAmount
//   RewardRedemption -quantity（集點卡）/ -pointsAmount（積分卡）
//
// 兌換交易依卡片類型把 RequiredValue 寫入 quantity 或 pointsAmount，
// 因此重放不需要知道卡片類型。
func ReplayBalance(transactions []*Transaction) (int, decimal.Decimal) {
	stamps := 0
	points := decimal.Zero
	for _, tx := range transactions {
		if tx == nil {
			continue
		}
		switch tx.transactionType {
		case TransactionTypeStampIssuance:
			stamps += tx.quantity
		case TransactionTypePointsIssuance:
			points = points.Add(tx.pointsAmount)
		case TransactionTypeStampVoid:
			stamps -= tx.quantity
		case TransactionTypePointsVoid:
			points = points.Sub(tx.pointsAmount)
		case TransactionTypeRewardRedemption:
			stamps -= tx.quantity
			points = points.Sub(tx.pointsAmount)
		}
	}
	return stamps, points
}

// QRCodeFor 從卡片 ID 推導 QR Code（純函數）
//
// 格式：LC-<32 位大寫十六進位>，不含連字號。
func QRCodeFor(cardID CardID) string {
	if cardID.IsEmpty() {
		return ""
	}
	return qrCodePrefix + strings.ToUpper(strings.ReplaceAll(cardID.String(), "-", ""))
}

// CardIDFromQRCode 從 QR Code 還原卡片 ID（QRCodeFor 的反向）
func CardIDFromQRCode(code string) (CardID, error) {
	code = strings.TrimSpace(code)
	hex := strings.TrimPrefix(code, qrCodePrefix)
	if hex == code || len(hex) != 32 {
		return CardID{}, ErrInvalidCardID.WithContext("qr_code", code)
	}
	return CardIDFromString(strings.ToLower(hex[0:8] + "-" + hex[8:12] + "-" + hex[12:16] + "-" + hex[16:20] + "-" + hex[20:]))
}

// AmountScale 積分與金額允許的小數位數（與資料庫欄位精度一致）
const AmountScale = 4

func exceedsAmountScale(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(AmountScale))
}
