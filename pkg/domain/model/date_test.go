package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hearth-archive/hearth/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestParseDate(t *testing.T) {
	d, err := model.ParseDate("2019-06-15")
	gt.NoError(t, err).Required()
	gt.Value(t, d).Equal(model.Date{Year: 2019, Month: time.June, Day: 15})
	gt.Value(t, d.String()).Equal("2019-06-15")
	gt.Value(t, d.MonthDay()).Equal(model.MonthDay("06-15"))

	_, err = model.ParseDate("2019/06/15")
	gt.Value(t, err).NotNil()
}

func TestDateOf_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	instant := time.Date(2024, time.June, 14, 20, 0, 0, 0, time.UTC)

	gt.Value(t, model.DateOf(instant, time.UTC).String()).Equal("2024-06-14")
	gt.Value(t, model.DateOf(instant, tokyo).String()).Equal("2024-06-15")
	gt.Value(t, model.DateOf(instant, nil).String()).Equal("2024-06-14")
}

func TestDate_YearsSince(t *testing.T) {
	today := model.MustParseDate("2024-06-15")

	gt.Value(t, today.YearsSince(model.MustParseDate("2019-06-15"))).Equal(5)
	gt.Value(t, today.YearsSince(model.MustParseDate("2019-06-16"))).Equal(4)
	gt.Value(t, today.YearsSince(model.MustParseDate("2023-01-01"))).Equal(1)
}

func TestDate_DateKeys(t *testing.T) {
	t.Run("regular day has one key", func(t *testing.T) {
		keys := model.MustParseDate("2024-10-31").DateKeys()
		gt.Array(t, keys).Length(1)
		gt.Value(t, keys[0]).Equal(model.MonthDay("10-31"))
	})

	t.Run("feb 28 of non-leap year includes leap day", func(t *testing.T) {
		keys := model.MustParseDate("2023-02-28").DateKeys()
		gt.Array(t, keys).Length(2)
		gt.Value(t, keys[1]).Equal(model.LeapDay)
	})

	t.Run("feb 28 of leap year does not include leap day", func(t *testing.T) {
		keys := model.MustParseDate("2024-02-28").DateKeys()
		gt.Array(t, keys).Length(1)
	})
}

func TestDate_AddDays(t *testing.T) {
	gt.Value(t, model.MustParseDate("2024-02-28").AddDays(1).String()).Equal("2024-02-29")
	gt.Value(t, model.MustParseDate("2024-03-01").AddDays(-1).String()).Equal("2024-02-29")
	gt.Bool(t, model.MustParseDate("2024-03-01").Before(model.MustParseDate("2024-03-02"))).True()
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		Date model.Date `json:"date"`
	}

	raw, err := json.Marshal(wrapper{Date: model.MustParseDate("2024-06-15")})
	gt.NoError(t, err).Required()
	gt.Value(t, string(raw)).Equal(`{"date":"2024-06-15"}`)

	var w wrapper
	gt.NoError(t, json.Unmarshal(raw, &w)).Required()
	gt.Value(t, w.Date).Equal(model.MustParseDate("2024-06-15"))
}
