package indicators

import "fmt"

// SMA is a streaming Simple Moving Average over the last period values.
type SMA struct {
	period int
	buf    []float64
	next   int
	filled bool
}

func NewSMA(period int) *SMA {
	if period <= 0 {
		panic("SMA period must be > 0")
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA(%d)", s.period) }
func (s *SMA) Warmup() int  { return s.period }
func (s *SMA) Ready() bool  { return s.filled }

func (s *SMA) Reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.next = 0
	s.filled = false
}

func (s *SMA) Update(x float64) {
	s.buf[s.next] = x
	s.next++
	if s.next == s.period {
		s.next = 0
		s.filled = true
	}
}

// Value sums the window oldest first, so the result does not depend on
// where the ring currently starts.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	sum := 0.0
	for i := 0; i < s.period; i++ {
		sum += s.buf[(s.next+i)%s.period]
	}
	return sum / float64(s.period)
}
