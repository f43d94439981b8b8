package eval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JasonAskew/knowledge-sub001/model"
)

type fakeSearcher struct {
	byQuestion map[string][]model.Result
	err        error
	delay      time.Duration
}

func (f *fakeSearcher) Search(ctx context.Context, req model.SearchRequest) ([]model.Result, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.byQuestion[req.Text], nil
}

func TestRunComputesHitRate(t *testing.T) {
	searcher := &fakeSearcher{byQuestion: map[string][]model.Result{
		"minimum deposit for home loan": {{DocumentID: "Home_Loan_Guide.pdf"}},
		"unrelated question":            {{DocumentID: "Other_Doc.pdf"}},
	}}
	cases := []Case{
		{ID: 1, Question: "minimum deposit for home loan", ExpectedDoc: "home_loan_guide"},
		{ID: 2, Question: "unrelated question", ExpectedDoc: "never_matches"},
	}
	report := Run(context.Background(), searcher, Config{Name: "vector"}, cases)
	assert.Equal(t, 0.5, report.HitRate)
	assert.Len(t, report.Cases, 2)
	assert.True(t, report.Cases[0].Hit)
	assert.False(t, report.Cases[1].Hit)
}

func TestRunHandlesSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("engine down")}
	cases := []Case{{ID: 1, Question: "q", ExpectedDoc: "doc"}}
	report := Run(context.Background(), searcher, Config{Name: "vector"}, cases)
	assert.Equal(t, 0.0, report.HitRate)
	assert.NotEmpty(t, report.Cases[0].Err)
}

func TestDocumentMatchCaseInsensitiveSubstring(t *testing.T) {
	assert.True(t, documentMatch("Home_Loan_Guide.pdf", []string{"home_loan_guide"}))
	assert.True(t, documentMatch("guide", []string{"home_loan_guide.pdf"}))
	assert.False(t, documentMatch("totally_different", []string{"home_loan_guide"}))
}

func TestPercentileDurationEmpty(t *testing.T) {
	assert.Equal(t, time.Duration(0), percentileDuration(nil, 0.95))
}

func TestMeanDurationEmpty(t *testing.T) {
	assert.Equal(t, time.Duration(0), meanDuration(nil))
}
