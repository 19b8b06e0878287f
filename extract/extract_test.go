package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cityheavenSample = `
<html><body>
<div class="sugunavi_wrapper">
  <a href="/tokyo/A1304/shop/girlid-4101234/"><img src="x.jpg"></a>
  <p class="shukkin_detail_time_font_size_s">12:00～24:00</p>
  <div class="sugunavibox">
    <p class="title">次回 14:30～</p>
  </div>
</div>
<div class="sugunavi_wrapper">
  <a href="/tokyo/A1304/shop/girlid-4105678/"><img src="y.jpg"></a>
  <p class="shukkin_detail_time_font_size_s">お休み</p>
  <div class="sugunavibox">
    <p class="title">13:00～待機中</p>
  </div>
</div>
<div class="sugunavi_wrapper">
  <a href="/tokyo/A1304/shop/girlid-4109999/"><img src="z.jpg"></a>
  <p class="shukkin_detail_time_font_size_s">20:00～04:00</p>
  <div class="sugunavibox">本日の受付終了</div>
</div>
<div class="sugunavi_wrapper">
  <!-- banner wrapper without a sugunavibox: ignored, not skipped -->
  <a href="/event/campaign"><img src="banner.jpg"></a>
</div>
<div class="sugunavi_wrapper">
  <!-- no staff link: counted as skipped -->
  <p class="shukkin_detail_time_font_size_s">15:00～22:00</p>
  <div class="sugunavibox"><p class="title">受付中</p></div>
</div>
</body></html>`

func TestCityheavenDialect(t *testing.T) {
	d := NewCityheavenDialect()

	entries, skipped, err := d.Extract(cityheavenSample)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped)
	require.Len(t, entries, 3)

	assert.Equal(t, "4101234", entries[0].StaffID)
	assert.Equal(t, "12:00～24:00", entries[0].ShiftTimeText)
	assert.Equal(t, "次回 14:30～", entries[0].AvailabilityText)

	assert.Equal(t, "4105678", entries[1].StaffID)
	assert.Equal(t, "お休み", entries[1].ShiftTimeText)

	// No title element: the whole box text is the availability annotation.
	assert.Equal(t, "4109999", entries[2].StaffID)
	assert.Equal(t, "本日の受付終了", entries[2].AvailabilityText)
}

func TestCityheavenDialect_EmptyPage(t *testing.T) {
	d := NewCityheavenDialect()

	entries, skipped, err := d.Extract("<html><body><p>maintenance</p></body></html>")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, skipped)
}

const dtownSample = `
<html><body>
<ul class="cast-list">
  <li class="cast-item">
    <a href="/shop/9001/cast/771/">Aoi</a>
    <span class="cast-shift">18:00-02:00</span>
    <span class="cast-status">受付終了</span>
  </li>
  <li class="cast-item">
    <a href="/shop/9001/cast/772/">Rin</a>
    <span class="cast-shift">12:00-20:00</span>
    <span class="cast-status">14:15～待機中</span>
  </li>
  <li class="cast-item">
    <a href="/shop/9001/news/">news</a>
    <span class="cast-shift">12:00-20:00</span>
  </li>
</ul>
</body></html>`

func TestDtownDialect(t *testing.T) {
	d := NewDtownDialect()

	entries, skipped, err := d.Extract(dtownSample)
	require.NoError(t, err)

	assert.Equal(t, 1, skipped, "item without a cast link is skipped")
	require.Len(t, entries, 2)

	assert.Equal(t, "771", entries[0].StaffID)
	assert.Equal(t, "18:00-02:00", entries[0].ShiftTimeText)
	assert.Equal(t, "受付終了", entries[0].AvailabilityText)

	assert.Equal(t, "772", entries[1].StaffID)
	assert.Equal(t, "14:15～待機中", entries[1].AvailabilityText)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("built-in dialects resolve", func(t *testing.T) {
		for _, name := range []string{"cityheaven", "dtown"} {
			d, err := r.Get(name)
			require.NoError(t, err)
			assert.Equal(t, name, d.Name())
		}
	})

	t.Run("unknown dialect is a typed error", func(t *testing.T) {
		_, err := r.Get("zexy")
		assert.ErrorIs(t, err, ErrUnknownDialect)
	})

	t.Run("names are sorted", func(t *testing.T) {
		assert.Equal(t, []string{"cityheaven", "dtown"}, r.Names())
	})
}
