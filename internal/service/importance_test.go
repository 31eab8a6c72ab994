package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aomail/backend/internal/domain"
)

func TestDeterminePriority(t *testing.T) {
	cases := []struct {
		name       string
		importance map[string]int
		want       domain.Priority
	}{
		{
			name: "urgent at threshold is important",
			importance: map[string]int{
				domain.BucketUrgentWork:  50,
				domain.BucketPromotional: 50,
			},
			want: domain.PriorityImportant,
		},
		{
			name: "urgent above threshold is important",
			importance: map[string]int{
				domain.BucketUrgentWork: 90,
			},
			want: domain.PriorityImportant,
		},
		{
			name: "routine updates rescue low promotional",
			importance: map[string]int{
				domain.BucketUrgentWork:  10,
				domain.BucketPromotional: 50,
				domain.BucketRoutineWork: 11,
			},
			want: domain.PriorityInformative,
		},
		{
			name: "routine at ten does not rescue",
			importance: map[string]int{
				domain.BucketRoutineWork: 10,
				domain.BucketPromotional: 80,
			},
			want: domain.PriorityUseless,
		},
		{
			name: "promotional majority is useless",
			importance: map[string]int{
				domain.BucketPromotional: 90,
				domain.BucketNews:        10,
			},
			want: domain.PriorityUseless,
		},
		{
			name: "news majority is useless",
			importance: map[string]int{
				domain.BucketNews:        70,
				domain.BucketPromotional: 60,
			},
			want: domain.PriorityUseless,
		},
		{
			name: "internal communications majority is informative",
			importance: map[string]int{
				domain.BucketInternalComms: 60,
				domain.BucketPromotional:   55,
			},
			want: domain.PriorityInformative,
		},
		{
			name: "urgent below threshold loses argmax to promotional",
			importance: map[string]int{
				domain.BucketUrgentWork:  40,
				domain.BucketPromotional: 55,
				domain.BucketNews:        30,
			},
			want: domain.PriorityUseless,
		},
		{
			name: "tie resolved by bucket order",
			importance: map[string]int{
				domain.BucketInternalComms: 60,
				domain.BucketNews:          60,
				domain.BucketPromotional:   55,
			},
			want: domain.PriorityInformative,
		},
		{
			name:       "all zero defaults to informative",
			importance: map[string]int{},
			want:       domain.PriorityInformative,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeterminePriority(tc.importance))
		})
	}
}
