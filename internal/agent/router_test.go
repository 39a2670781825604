package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	r := NewRouter(nil)

	tests := []struct {
		name  string
		query string
		want  TaskType
	}{
		{
			name:  "policy question",
			query: "보험 약관에서 암 보장 내용을 알려줘",
			want:  TaskSearch,
		},
		{
			name:  "upload request",
			query: "약관 PDF 파일 업로드 해줘",
			want:  TaskUpload,
		},
		{
			name:  "management request",
			query: "문서 목록 조회해서 보여줘",
			want:  TaskManage,
		},
		{
			name:  "no keywords defaults to search",
			query: "안녕하세요",
			want:  TaskSearch,
		},
		{
			name:  "tie favors search",
			query: "약관 파일",
			want:  TaskSearch,
		},
		{
			name:  "empty query defaults to search",
			query: "",
			want:  TaskSearch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.query))
		})
	}
}

func TestRoute_ExplicitTaskTypeBypassesClassification(t *testing.T) {
	r := NewRouter(nil)

	// Given: a state pre-set to upload despite a search-looking query
	s := NewState("암 보장 내용을 알려줘", TaskUpload)

	assert.Equal(t, TaskUpload, r.Route(s))
}

func TestRoute_ClassifiesWhenUnset(t *testing.T) {
	r := NewRouter(nil)
	s := NewState("문서 목록 삭제", "")

	assert.Equal(t, TaskManage, r.Route(s))
}
