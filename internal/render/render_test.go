package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artloop/notify-backend/internal/render"
)

func TestRenderBothPresent(t *testing.T) {
	got := render.Render("Hi {name}, {value}", render.Vars{Name: "Kim", Value: "Coupon: A1"})
	assert.Equal(t, "Hi Kim, Coupon: A1", got)
}

func TestRenderAbsentValueDropsSlot(t *testing.T) {
	got := render.Render("Hi {name}, {value}", render.Vars{Name: "Kim"})
	assert.Equal(t, "Hi Kim,", got)
}

func TestRenderAbsentNameDropsGreetingClause(t *testing.T) {
	got := render.Render("Hi {name}, {value}", render.Vars{Value: "Coupon: A1"})
	assert.Equal(t, "Coupon: A1", got)
}

func TestRenderHonorificSuffixPruned(t *testing.T) {
	got := render.Render("{name}님, 전시 오픈 안내입니다", render.Vars{})
	assert.Equal(t, "전시 오픈 안내입니다", got)
}

func TestRenderHonorificSuffixKeptWhenNamePresent(t *testing.T) {
	got := render.Render("{name}님, 전시 오픈 안내입니다", render.Vars{Name: "김지수"})
	assert.Equal(t, "김지수님, 전시 오픈 안내입니다", got)
}

func TestRenderNoLeftoverTokens(t *testing.T) {
	templates := []string{
		"Hi {name}, {value}",
		"{name}님 안녕하세요. {value}",
		"{value} 쿠폰이 도착했어요, {name}님!",
		"no placeholders at all",
	}
	for _, tpl := range templates {
		got := render.Render(tpl, render.Vars{})
		assert.NotContains(t, got, "{name}", "template %q", tpl)
		assert.NotContains(t, got, "{value}", "template %q", tpl)
		assert.Equal(t, strings.TrimSpace(got), got)
	}
}

func TestRenderBothAbsentPlainTemplate(t *testing.T) {
	// Non-personalized campaigns send the raw template untouched.
	got := render.Render("Doors open at 7pm.", render.Vars{})
	assert.Equal(t, "Doors open at 7pm.", got)
}

func TestRenderPure(t *testing.T) {
	tpl := "Hi {name}, {value}"
	first := render.Render(tpl, render.Vars{Name: "Lee"})
	second := render.Render(tpl, render.Vars{Name: "Lee"})
	assert.Equal(t, first, second)
	assert.Equal(t, "Hi {name}, {value}", tpl)
}
