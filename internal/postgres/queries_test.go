package postgres

import (
	"testing"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTournamentQuery(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.TournamentFilter
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			filter:    domain.TournamentFilter{},
			wantWhere: "FROM tournaments ORDER BY id",
			wantArgs:  nil,
		},
		{
			name:      "statuses",
			filter:    domain.TournamentFilter{Statuses: []domain.TournamentStatus{domain.StatusPending}},
			wantWhere: "WHERE status = ANY($1) ORDER BY id",
			wantArgs:  []any{[]string{"pending"}},
		},
		{
			name: "statuses and metric",
			filter: domain.TournamentFilter{
				Statuses: []domain.TournamentStatus{domain.StatusOngoing, domain.StatusJudging},
				Metric:   domain.MetricEngagement,
			},
			wantWhere: "WHERE status = ANY($1) AND metric = $2 ORDER BY id",
			wantArgs:  []any{[]string{"ongoing", "judging"}, "engagement"},
		},
		{
			name:      "metric only",
			filter:    domain.TournamentFilter{Metric: domain.MetricSize},
			wantWhere: "WHERE metric = $1 ORDER BY id",
			wantArgs:  []any{"size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildTournamentQuery(tt.filter)
			assert.Contains(t, query, tt.wantWhere)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestBuildSubmissionQuery(t *testing.T) {
	query, args := buildSubmissionQuery("t1", domain.SubmissionFilter{})
	assert.Contains(t, query, "WHERE tournament_id = $1 ORDER BY id")
	assert.Equal(t, []any{"t1"}, args)

	query, args = buildSubmissionQuery("t1", domain.SubmissionFilter{UserID: "u1", Status: domain.SubmissionApproved})
	assert.Contains(t, query, "WHERE tournament_id = $1 AND user_id = $2 AND status = $3 ORDER BY id")
	assert.Equal(t, []any{"t1", "u1", "approved"}, args)
}

func TestPrizeCodec(t *testing.T) {
	data, err := encodePrizes(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	prizes, err := decodePrizes(data)
	require.NoError(t, err)
	assert.Nil(t, prizes)

	data, err = encodePrizes([]domain.Prize{{Rank: 1, Title: "Aori King"}})
	require.NoError(t, err)
	prizes, err = decodePrizes(data)
	require.NoError(t, err)
	require.Len(t, prizes, 1)
	assert.Equal(t, "Aori King", prizes[0].Title)

	_, err = decodePrizes([]byte(`{`))
	assert.Error(t, err)
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(time.Time{}))
	assert.True(t, timeOrZero(nil).IsZero())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, now, timeOrZero(nullTime(now)))
}
