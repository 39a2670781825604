package agent

import (
	"log/slog"
	"strings"
)

// Intent keyword lists. A query is scored against each list by substring
// hits; the highest scoring intent wins.
var (
	searchKeywords = []string{
		"검색", "찾아", "알려줘", "알려주세요", "무엇", "어떻게", "언제",
		"보장", "보험", "약관", "조항", "내용", "설명", "궁금", "질문",
		"문의", "확인", "가입", "해지", "청구",
	}
	uploadKeywords = []string{
		"업로드", "올려", "등록", "추가", "파일", "PDF", "문서",
	}
	manageKeywords = []string{
		"관리", "목록", "삭제", "다운로드", "조회", "보기",
	}
)

// Router maps free-form queries to a task type.
type Router struct {
	logger *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Route resolves the request's task type. An explicit task type on the
// state bypasses classification; otherwise the query is scored against
// the three keyword lists. Ties and all-zero scores default to search.
func (r *Router) Route(s *State) TaskType {
	if s.TaskType != "" {
		r.logger.Debug("explicit task type, classification skipped", "task_type", s.TaskType)
		return s.TaskType
	}
	return r.Classify(s.Query)
}

// Classify scores query against the keyword lists.
func (r *Router) Classify(query string) TaskType {
	if strings.TrimSpace(query) == "" {
		return TaskSearch
	}

	searchScore := score(query, searchKeywords)
	uploadScore := score(query, uploadKeywords)
	manageScore := score(query, manageKeywords)

	// Search wins ties: an ambiguous question is still worth answering.
	best, task := searchScore, TaskSearch
	if uploadScore > best {
		best, task = uploadScore, TaskUpload
	}
	if manageScore > best {
		best, task = manageScore, TaskManage
	}

	r.logger.Debug("intent classified",
		"task_type", task,
		"score", best,
		"search_score", searchScore,
		"upload_score", uploadScore,
		"manage_score", manageScore)

	return task
}

func score(query string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(query, kw) {
			n++
		}
	}
	return n
}
