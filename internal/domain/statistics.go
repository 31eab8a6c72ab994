package domain

// Statistics 每用户的入库统计计数，随成功入库递增。
type Statistics struct {
	ID     string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID string `json:"userId" gorm:"type:varchar(36);uniqueIndex;not null"`

	EmailsReceived    int `json:"emailsReceived" gorm:"default:0"`
	EmailsImportant   int `json:"emailsImportant" gorm:"default:0"`
	EmailsInformative int `json:"emailsInformative" gorm:"default:0"`
	EmailsUseless     int `json:"emailsUseless" gorm:"default:0"`

	AnswerRequired     int `json:"answerRequired" gorm:"default:0"`
	MightRequireAnswer int `json:"mightRequireAnswer" gorm:"default:0"`
	NoAnswerRequired   int `json:"noAnswerRequired" gorm:"default:0"`

	HighlyRelevant   int `json:"highlyRelevant" gorm:"default:0"`
	PossiblyRelevant int `json:"possiblyRelevant" gorm:"default:0"`
	NotRelevant      int `json:"notRelevant" gorm:"default:0"`

	Spam         int `json:"spam" gorm:"default:0"`
	Scam         int `json:"scam" gorm:"default:0"`
	Newsletter   int `json:"newsletter" gorm:"default:0"`
	Notification int `json:"notification" gorm:"default:0"`
	Meeting      int `json:"meeting" gorm:"default:0"`
}

// StatisticsFromEmail 根据一封刚入库的邮件计算统计增量。
func StatisticsFromEmail(email *Email) Statistics {
	stats := Statistics{UserID: email.UserID, EmailsReceived: 1}

	switch email.Priority {
	case PriorityImportant:
		stats.EmailsImportant = 1
	case PriorityInformative:
		stats.EmailsInformative = 1
	case PriorityUseless:
		stats.EmailsUseless = 1
	}

	switch email.Answer {
	case AnswerRequired:
		stats.AnswerRequired = 1
	case MightRequireAnswer:
		stats.MightRequireAnswer = 1
	case NoAnswerRequired:
		stats.NoAnswerRequired = 1
	}

	switch email.Relevance {
	case HighlyRelevant:
		stats.HighlyRelevant = 1
	case PossiblyRelevant:
		stats.PossiblyRelevant = 1
	case NotRelevant:
		stats.NotRelevant = 1
	}

	if email.Spam {
		stats.Spam = 1
	}
	if email.Scam {
		stats.Scam = 1
	}
	if email.Newsletter {
		stats.Newsletter = 1
	}
	if email.Notification {
		stats.Notification = 1
	}
	if email.Meeting {
		stats.Meeting = 1
	}

	return stats
}
