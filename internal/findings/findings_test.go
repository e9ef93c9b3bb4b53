package findings

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFinding() *Finding {
	return New(
		7,
		"subtle",
		[][]byte{[]byte("GET / HTTP/1.1\r\n\r\n")},
		[]TargetOutput{
			{Target: "alpha", Raw: []byte("HTTP/1.1 200 OK\r\n\r\n")},
			{Target: "bravo", Raw: []byte("HTTP/1.1 400 Bad Request\r\n\r\n")},
		},
	)
}

func TestNewFinding(t *testing.T) {
	f := sampleFinding()

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, uint64(7), f.Iteration)
	assert.Equal(t, "subtle", f.Verdict)
	assert.False(t, f.At.IsZero())

	// IDs are unique per finding.
	assert.NotEqual(t, f.ID, sampleFinding().ID)
}

func TestJSONLSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.jsonl")
	sink := NewJSONLSink(path)

	require.NoError(t, sink.Start(context.Background()))
	require.NoError(t, sink.Record(sampleFinding()))
	require.NoError(t, sink.Record(sampleFinding()))
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var decoded Finding
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decoded))
		assert.Equal(t, "subtle", decoded.Verdict)
		assert.Len(t, decoded.Outputs, 2)
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestJSONLSinkRecordBeforeStart(t *testing.T) {
	sink := NewJSONLSink(filepath.Join(t.TempDir(), "f.jsonl"))
	assert.Error(t, sink.Record(sampleFinding()))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantKeep   bool
		wantErr    bool
	}{
		{"empty expression keeps everything", "", true, false},
		{"verdict match", `select(.verdict == "subtle")`, true, false},
		{"verdict mismatch", `select(.verdict == "stream")`, false, false},
		{"boolean expression", `.iteration > 5`, true, false},
		{"boolean false", `.iteration > 100`, false, false},
		{"null output drops", `.missing_field`, false, false},
		{"invalid expression", `][`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl, err := NewFilter(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			keep, err := fl.Keep(sampleFinding())
			require.NoError(t, err)
			assert.Equal(t, tt.wantKeep, keep)
		})
	}
}

func TestPGSink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sink := NewPGSinkWithDB(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS findings").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, sink.Start(context.Background()))

	f := sampleFinding()
	mock.ExpectExec("INSERT INTO findings").
		WithArgs(f.ID, sqlmock.AnyArg(), f.Verdict, sqlmock.AnyArg(), f.At).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, sink.Record(f))

	mock.ExpectClose()
	require.NoError(t, sink.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink()
	require.NoError(t, sink.Start(context.Background()))
	require.NoError(t, sink.Record(sampleFinding()))
	require.NoError(t, sink.Close())
}
