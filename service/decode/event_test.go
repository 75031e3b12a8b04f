package decode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectEvents(t *testing.T, logs []string) ([]ParsedEvent, []error) {
	t.Helper()
	var events []ParsedEvent
	var errs []error
	for ev, err := range Logs(logs) {
		events = append(events, ev)
		errs = append(errs, err)
	}
	return events, errs
}

func TestLogs_MixedTypedAndPlain(t *testing.T) {
	logs := []string{
		"Program Cyphr invoke [1]",
		`Program log: {"type":"cypher_transfer","from":"A","to":"B","amount":1000}`,
		"Program log: hello",
		"Program Cyphr success",
	}

	events, errs := collectEvents(t, logs)
	require.Len(t, events, 2)

	require.NoError(t, errs[0])
	transfer, ok := events[0].(*TransferEvent)
	require.True(t, ok)
	assert.Equal(t, "A", transfer.From)
	assert.Equal(t, "B", transfer.To)
	assert.Equal(t, uint64(1000), transfer.Amount)

	require.NoError(t, errs[1])
	plain, ok := events[1].(*PlainEvent)
	require.True(t, ok)
	assert.Equal(t, "hello", plain.Text)
}

func TestLogs_MintAndBurn(t *testing.T) {
	logs := []string{
		`Program log: {"type":"cypher_mint","to":"X","amount":5}`,
		`Program log: {"type":"cypher_burn","from":"Y","amount":3}`,
	}

	events, errs := collectEvents(t, logs)
	require.Len(t, events, 2)
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	assert.Equal(t, &MintEvent{To: "X", Amount: 5}, events[0])
	assert.Equal(t, &BurnEvent{From: "Y", Amount: 3}, events[1])
}

func TestLogs_UnknownType(t *testing.T) {
	logs := []string{`Program log: {"type":"cypher_freeze","account":"Z"}`}

	events, errs := collectEvents(t, logs)
	require.Len(t, errs, 1)
	assert.Nil(t, events[0])

	var unknown *UnknownEventTypeError
	require.True(t, errors.As(errs[0], &unknown))
	assert.Equal(t, "cypher_freeze", unknown.Type)
}

func TestLogs_UntypedJSONPreserved(t *testing.T) {
	logs := []string{`Program log: {"note":"no discriminant"}`}

	events, errs := collectEvents(t, logs)
	require.Len(t, events, 1)
	require.NoError(t, errs[0])

	jsonEv, ok := events[0].(*JSONEvent)
	require.True(t, ok)
	assert.JSONEq(t, `{"note":"no discriminant"}`, string(jsonEv.Raw))
}

func TestLogs_MalformedJSON(t *testing.T) {
	logs := []string{`Program log: {"type":"cypher_transfer",`}

	events, errs := collectEvents(t, logs)
	require.Len(t, errs, 1)
	assert.Nil(t, events[0])

	var invalid *InvalidEventFormatError
	assert.True(t, errors.As(errs[0], &invalid))
}

func TestLogs_ErrorDoesNotStopSequence(t *testing.T) {
	logs := []string{
		`Program log: {"type":"bogus"}`,
		`Program log: {"type":"cypher_mint","to":"X","amount":9}`,
	}

	events, errs := collectEvents(t, logs)
	require.Len(t, events, 2)
	assert.Error(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, &MintEvent{To: "X", Amount: 9}, events[1])
}

func TestLogs_SkipsIneligibleLines(t *testing.T) {
	logs := []string{
		"Program Cyphr invoke [1]",
		"Program consumption: 12345 units",
		"Program Cyphr success",
	}

	events, _ := collectEvents(t, logs)
	assert.Empty(t, events)
}

func TestLogs_Restartable(t *testing.T) {
	logs := []string{"Program log: once"}
	seq := Logs(logs)

	for range 2 {
		count := 0
		for ev, err := range seq {
			require.NoError(t, err)
			assert.Equal(t, &PlainEvent{Text: "once"}, ev)
			count++
		}
		assert.Equal(t, 1, count)
	}
}
