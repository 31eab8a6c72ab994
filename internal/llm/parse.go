package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"aomail/backend/internal/domain"
)

// MalformedResponseError 表示模型输出不符合约定格式。
// 该类错误可通过重试同一分类调用恢复。
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return "malformed llm response: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}

// rawClassification 宽松的中间解码结构。
// importance 值与 summary.short 的类型由模型自由发挥，延迟到二次解析。
type rawClassification struct {
	Topic      *string                     `json:"topic"`
	Response   *string                     `json:"response"`
	Relevance  *string                     `json:"relevance"`
	Importance map[string]json.RawMessage  `json:"importance"`
	Flags      *domain.ClassificationFlags `json:"flags"`
	Summary    *rawSummary                 `json:"summary"`
}

type rawSummary struct {
	OneLine string          `json:"one_line"`
	Short   json.RawMessage `json:"short"`
}

// parseClassification 将模型原始输出解析为分类结果。
//
// 容忍 ```json 围栏、importance 值为字符串或浮点数、
// summary.short 为字符串或数组；缺失必需字段或枚举值
// 越界则返回 MalformedResponseError。
func parseClassification(raw string) (*domain.ClassificationResult, error) {
	cleaned := stripFences(raw)

	var parsed rawClassification
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, malformed("invalid json: %v", err)
	}

	if parsed.Topic == nil || *parsed.Topic == "" {
		return nil, malformed("missing topic")
	}
	if parsed.Response == nil {
		return nil, malformed("missing response")
	}
	if parsed.Relevance == nil {
		return nil, malformed("missing relevance")
	}
	if parsed.Flags == nil {
		return nil, malformed("missing flags")
	}
	if parsed.Summary == nil {
		return nil, malformed("missing summary")
	}
	if strings.TrimSpace(parsed.Summary.OneLine) == "" {
		return nil, malformed("missing summary.one_line")
	}
	if len(parsed.Importance) == 0 {
		return nil, malformed("missing importance")
	}

	if !validResponse(*parsed.Response) {
		return nil, malformed("unknown response value %q", *parsed.Response)
	}
	if !validRelevance(*parsed.Relevance) {
		return nil, malformed("unknown relevance value %q", *parsed.Relevance)
	}

	importance := make(map[string]int, len(domain.ImportanceBuckets))
	for _, bucket := range domain.ImportanceBuckets {
		value, ok := parsed.Importance[bucket]
		if !ok {
			return nil, malformed("importance missing bucket %q", bucket)
		}
		n, err := flexInt(value)
		if err != nil {
			return nil, malformed("importance bucket %q: %v", bucket, err)
		}
		importance[bucket] = n
	}

	bullets, err := flexBullets(parsed.Summary.Short)
	if err != nil {
		return nil, malformed("summary.short: %v", err)
	}

	return &domain.ClassificationResult{
		Topic:      *parsed.Topic,
		Response:   *parsed.Response,
		Relevance:  *parsed.Relevance,
		Importance: importance,
		Flags:      *parsed.Flags,
		Summary: domain.ClassificationSummary{
			OneLine: strings.TrimSpace(parsed.Summary.OneLine),
			Bullets: bullets,
		},
	}, nil
}

// stripFences 去除模型输出外层的 Markdown 代码围栏
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

// flexInt 将数值、带引号的数值或浮点数强制转换为整数
func flexInt(raw json.RawMessage) (int, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	text = strings.TrimSuffix(text, "%")
	if text == "" {
		return 0, fmt.Errorf("empty value")
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	return int(f), nil
}

// flexBullets 接受字符串或字符串数组两种要点表示
func flexBullets(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("missing")
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty list")
		}
		return out, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return nil, fmt.Errorf("empty string")
		}
		return []string{single}, nil
	}

	return nil, fmt.Errorf("neither string nor list")
}

func validResponse(value string) bool {
	switch value {
	case domain.AnswerRequired, domain.MightRequireAnswer, domain.NoAnswerRequired:
		return true
	}
	return false
}

func validRelevance(value string) bool {
	switch value {
	case domain.HighlyRelevant, domain.PossiblyRelevant, domain.NotRelevant:
		return true
	}
	return false
}
