package service

import "aomail/backend/internal/domain"

// DeterminePriority 将五桶重要性分布折算为三值优先级。
//
// 判定级联：
//  1. UrgentWorkInformation >= 50 判为 important；
//  2. 否则 Promotional <= 50 且 RoutineWorkUpdates > 10 判为 informative；
//  3. 否则取最高桶映射优先级，并列时按固定桶顺序先出现者胜出，
//     全零分布判为 informative。
func DeterminePriority(importance map[string]int) domain.Priority {
	if importance[domain.BucketUrgentWork] >= 50 {
		return domain.PriorityImportant
	}
	if importance[domain.BucketPromotional] <= 50 && importance[domain.BucketRoutineWork] > 10 {
		return domain.PriorityInformative
	}

	priority := domain.PriorityInformative
	maxPercentage := 0
	for _, bucket := range domain.ImportanceBuckets {
		if importance[bucket] > maxPercentage {
			maxPercentage = importance[bucket]
			priority = bucketPriority(bucket)
		}
	}
	return priority
}

// bucketPriority 单个桶到优先级的映射
func bucketPriority(bucket string) domain.Priority {
	switch bucket {
	case domain.BucketUrgentWork:
		return domain.PriorityImportant
	case domain.BucketRoutineWork, domain.BucketInternalComms:
		return domain.PriorityInformative
	default: // Promotional, News
		return domain.PriorityUseless
	}
}
