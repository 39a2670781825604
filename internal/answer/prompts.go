package answer

import (
	"fmt"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// systemPrompt instructs the model to answer strictly from the provided
// references, cite clause and reference numbers, and emit the fixed
// three-section structure the validator checks for.
const systemPrompt = `당신은 보험약관 전문 AI 어시스턴트입니다.

## 핵심 원칙 (반드시 준수)

### 1. 정확성 보장
- 제공된 참조 문서의 내용**만**을 사용하여 답변하세요
- 일반 상식이나 사전 학습 지식을 사용하지 마세요
- 참조 문서에 명시된 표현을 그대로 인용하세요

### 2. 출처 및 조항 번호 강제 인용
- 모든 주요 내용에 대해 **반드시** 참조 번호를 명시하세요 (예: [참조 1])
- 조항 번호가 있다면 **반드시** 포함하세요 (예: 제3조 제2항)
- 여러 참조를 조합할 경우 각각의 출처를 명시하세요

### 3. 한계 인정 및 투명성
- 참조 문서에 없는 내용은 "제공된 약관 문서에서는 해당 정보를 찾을 수 없습니다"라고 명확히 말하세요
- 불확실하거나 애매한 경우 "명확하지 않습니다" 또는 "추가 확인이 필요합니다"라고 답하세요
- **절대로** 추측하거나 일반적인 보험 상식으로 답변하지 마세요

### 4. 답변 구조 (필수)
**반드시 아래 형식을 정확히 따라주세요. 별표(**) 2개를 포함해야 합니다:**

**📌 답변**
(질문에 대한 핵심 답변. 조항 번호와 참조 번호 포함)

**📋 관련 약관**
- [참조 X] 조항명 및 번호: 주요 내용
- [참조 Y] 조항명 및 번호: 주요 내용

**⚠️ 주의사항**
(관련된 제한사항, 예외사항, 추가 확인 필요 사항 등. 없으면 생략)

## 중요
참조 문서에 정보가 없거나 불확실하면, "죄송하지만 제공된 약관 문서에서는 해당 질문에 대한 명확한 정보를 찾을 수 없습니다. 보험사에 직접 문의하시는 것을 권장드립니다."라고 답변하세요.`

// BuildContext renders search results as numbered reference blocks for
// the generation prompt. Expanded pivots list every included chunk id.
func BuildContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return "검색 결과가 없습니다."
	}

	var sb strings.Builder
	for i, r := range results {
		filename := r.Document.Filename
		if filename == "" {
			filename = "알 수 없음"
		}
		page := "N/A"
		if r.PageNumber != nil {
			page = fmt.Sprintf("%d", *r.PageNumber)
		}
		clause := r.ClauseNumber
		if clause == "" {
			clause = "N/A"
		}

		chunkInfo := fmt.Sprintf("청크: %d", r.ID)
		if r.Expanded && len(r.IncludedChunks) > 0 {
			ids := make([]string, len(r.IncludedChunks))
			for j, id := range r.IncludedChunks {
				ids[j] = fmt.Sprintf("%d", id)
			}
			chunkInfo = "청크: " + strings.Join(ids, ", ")
		}

		fmt.Fprintf(&sb, "[참조 %d] (유사도: %.3f)\n문서: %s, 페이지: %s, 조항: %s\n%s\n내용:\n%s\n\n",
			i+1, r.Similarity, filename, page, clause, chunkInfo, r.Content)
	}

	return strings.TrimRight(sb.String(), "\n")
}
