package domain

// EmailSearchCriteria 邮件列表的查询条件。
type EmailSearchCriteria struct {
	UserID     string
	CategoryID string
	Priority   Priority
	Read       *bool
	Archived   *bool
	Query      string // 匹配主题与摘要的关键词
	Page       int
	PageSize   int
}

// EmailSearchResult 分页查询结果。
type EmailSearchResult struct {
	Emails   []Email `json:"emails"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// ProviderSearchQuery 发往服务商邮箱 API 的搜索请求（扇出搜索用）。
type ProviderSearchQuery struct {
	Keywords   []string `json:"keywords"`
	From       []string `json:"from"`
	Subject    string   `json:"subject"`
	MaxResults int      `json:"maxResults"`
}

// ProviderSearchHit 服务商侧搜索命中的一条消息引用。
type ProviderSearchHit struct {
	AccountEmail string        `json:"accountEmail"`
	Provider     EmailProvider `json:"provider"`
	ProviderID   string        `json:"providerId"`
	Subject      string        `json:"subject"`
	From         string        `json:"from"`
}
