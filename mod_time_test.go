package island

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTime_SecondsClamped(t *testing.T) {
	assert.Equal(t, 0.0, (&Time{Dt: -time.Second}).Seconds())
	assert.InDelta(t, 1.0/60, (&Time{Dt: time.Second / 60}).Seconds(), 1e-9)
	assert.Equal(t, 0.25, (&Time{Dt: 3 * time.Second}).Seconds())
}

func TestTimeModule_AdvancesEachFrame(t *testing.T) {
	clock := time.Unix(0, 0)
	now := func() time.Time { return clock }

	app := NewAppBuilder().UseModules(TimeModule{Now: now}).Build()
	res := Resource[Time](app)

	clock = clock.Add(16 * time.Millisecond)
	app.RunFrame()
	assert.Equal(t, 16*time.Millisecond, res.Dt)

	clock = clock.Add(time.Second)
	app.RunFrame()
	assert.Equal(t, time.Second, res.Dt)
	assert.Equal(t, 0.25, res.Seconds())
}
