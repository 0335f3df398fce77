package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestAnswerValue_JSONShapes(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		data, err := json.Marshal(ScalarAnswer(Bool(true)))
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":true}`, string(data))
	})

	t.Run("null scalar", func(t *testing.T) {
		data, err := json.Marshal(ScalarAnswer(Null()))
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":null}`, string(data))
	})

	t.Run("file", func(t *testing.T) {
		data, err := json.Marshal(FileAnswer("responses/abc", "exit.jpg"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"filePath":"responses/abc","originalName":"exit.jpg"}`, string(data))
	})
}

func TestAnswerValue_UnmarshalPicksShape(t *testing.T) {
	var v AnswerValue
	require.NoError(t, json.Unmarshal([]byte(`{"filePath":"responses/1","originalName":"a.pdf"}`), &v))
	assert.True(t, v.IsFile())
	assert.True(t, v.Value.IsNull())
	assert.Equal(t, "a.pdf", v.OriginalName)

	// a string that looks like a path is still a scalar
	require.NoError(t, json.Unmarshal([]byte(`{"value":"responses/1"}`), &v))
	assert.False(t, v.IsFile())
	assert.Equal(t, String("responses/1"), v.Value)

	require.NoError(t, json.Unmarshal([]byte(`{}`), &v))
	assert.False(t, v.IsFile())
	assert.True(t, v.Value.IsNull())

	assert.Error(t, json.Unmarshal([]byte(`{"value":[1,2]}`), &v))
}

func TestScalarOf(t *testing.T) {
	testCases := []struct {
		in   interface{}
		want Scalar
	}{
		{nil, Null()},
		{true, Bool(true)},
		{"x", String("x")},
		{3, Number(3)},
		{int64(-2), Number(-2)},
		{2.5, Number(2.5)},
		{json.Number("10"), Number(10)},
	}
	for _, tc := range testCases {
		got, err := ScalarOf(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	_, err := ScalarOf(map[string]interface{}{"a": 1})
	assert.Error(t, err)
	_, err = ScalarOf([]interface{}{1})
	assert.Error(t, err)
}

func TestScalar_JSONKeepsKinds(t *testing.T) {
	var got []Scalar
	require.NoError(t, json.Unmarshal([]byte(`[null, false, 0, "0", ""]`), &got))
	assert.Equal(t, []Scalar{Null(), Bool(false), Number(0), String("0"), String("")}, got)
}

func TestScalar_BSONRoundTrip(t *testing.T) {
	type doc struct {
		V Scalar `bson:"v"`
	}
	for _, s := range []Scalar{Null(), Bool(true), Number(4.5), String("yes")} {
		data, err := bson.Marshal(doc{V: s})
		require.NoError(t, err)

		var out doc
		require.NoError(t, bson.Unmarshal(data, &out))
		assert.Equal(t, s, out.V, s.String())
	}
}

func TestSortQuestions(t *testing.T) {
	qs := []Question{{ID: "c", Order: 2}, {ID: "b", Order: 1}, {ID: "a", Order: 2}}
	sorted := SortQuestions(qs)

	ids := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, "c", qs[0].ID)
}

func TestResponse_Status(t *testing.T) {
	r := &Response{Answers: AnswerSet{}}
	assert.Equal(t, ResponseStarted, r.Status())

	r.Answers.Put("q1", ScalarAnswer(Bool(true)))
	assert.Equal(t, ResponseInProgress, r.Status())

	r.Submitted = true
	assert.Equal(t, ResponseSubmitted, r.Status())
}

func TestSaveAnswerRequest_AnswerPresence(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		present bool
	}{
		{"scalar", `{"questionId":"q1","answer":{"value":true}}`, true},
		{"explicit null", `{"questionId":"q1","answer":{"value":null}}`, true},
		{"file", `{"questionId":"q1","answer":{"filePath":"responses/1","originalName":"a.pdf"}}`, true},
		{"missing", `{"questionId":"q1"}`, false},
		{"null", `{"questionId":"q1","answer":null}`, false},
		{"empty object", `{"questionId":"q1","answer":{}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req SaveAnswerRequest
			require.NoError(t, json.Unmarshal([]byte(tt.in), &req))
			assert.Equal(t, "q1", req.QuestionID)
			assert.Equal(t, tt.present, req.Answer != nil)
		})
	}

	var req SaveAnswerRequest
	assert.Error(t, json.Unmarshal([]byte(`{"questionId":"q1","answer":true}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"questionId":"q1","answer":{"value":[1]}}`), &req))
}
