package shared

import "context"

// TransactionContext 事務上下文介面
//
// 可選事務參與模式：
// - txCtx != nil：在調用者的事務中執行
// - txCtx == nil：auto-commit（適用於獨立讀取）
//
// 寫操作（Save / Update）必須在 TransactionManager.InTransaction 內執行，
// 確保卡片餘額與新交易紀錄同時寫入或同時回滾。
//
// 這是標記介面，Infrastructure Layer 負責具體實作（GORM、記憶體）。
type TransactionContext interface {
	// 標記介面：僅用於傳遞上下文，不暴露方法
}

// TransactionManager 事務管理器介面
//
// ctx 用於取消與逾時：ctx 被取消時事務回滾，不留下部分寫入。
type TransactionManager interface {
	InTransaction(ctx context.Context, fn func(txCtx TransactionContext) error) error
}
