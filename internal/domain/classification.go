package domain

// 重要性分布的五个固定桶名。顺序即平局裁决顺序：
// 多个桶并列最高时，先出现者胜出。
const (
	BucketUrgentWork    = "UrgentWorkInformation"
	BucketRoutineWork   = "RoutineWorkUpdates"
	BucketInternalComms = "InternalCommunications"
	BucketPromotional   = "Promotional"
	BucketNews          = "News"
)

// ImportanceBuckets 按固定顺序列出全部桶名。
var ImportanceBuckets = []string{
	BucketUrgentWork,
	BucketRoutineWork,
	BucketInternalComms,
	BucketPromotional,
	BucketNews,
}

// ClassificationFlags LLM 判定的五个布尔标志。
type ClassificationFlags struct {
	Spam         bool `json:"spam"`
	Scam         bool `json:"scam"`
	Newsletter   bool `json:"newsletter"`
	Notification bool `json:"notification"`
	Meeting      bool `json:"meeting"`
}

// ClassificationSummary 两级摘要：一句话 + 有序要点列表。
type ClassificationSummary struct {
	OneLine string   `json:"one_line"`
	Bullets []string `json:"short"`
}

// ClassificationResult 是解析后的 LLM 分类输出（瞬态，不单独落库）。
//
// Importance 是各桶的整数百分比，总和只约等于 100，
// 任何消费方都不得假定其恰好为 100。
type ClassificationResult struct {
	Topic      string
	Response   string
	Relevance  string
	Importance map[string]int
	Flags      ClassificationFlags
	Summary    ClassificationSummary
}
