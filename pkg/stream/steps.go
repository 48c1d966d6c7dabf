package stream

// StepRecord ties a tool block to the step number it was given.
type StepRecord struct {
	BlockIndex int
	StepNumber int
}

// StepCounter mints step numbers for tool blocks, starting at 1.
// It is not safe for concurrent use.
type StepCounter struct {
	records []StepRecord
	byIndex map[int]int
}

// NewStepCounter returns a counter with no steps.
func NewStepCounter() *StepCounter {
	return &StepCounter{byIndex: make(map[int]int)}
}

// Next mints the next step number and records it for blockIndex.
func (c *StepCounter) Next(blockIndex int) int {
	n := len(c.records) + 1
	c.records = append(c.records, StepRecord{BlockIndex: blockIndex, StepNumber: n})
	c.byIndex[blockIndex] = n
	return n
}

// Lookup returns the step number recorded for blockIndex. When the
// block's start was never seen it falls back to blockIndex+1.
func (c *StepCounter) Lookup(blockIndex int) int {
	if n, ok := c.byIndex[blockIndex]; ok {
		return n
	}
	return blockIndex + 1
}

// Total returns the number of steps minted so far.
func (c *StepCounter) Total() int {
	return len(c.records)
}

// Records returns the minted steps in order.
func (c *StepCounter) Records() []StepRecord {
	out := make([]StepRecord, len(c.records))
	copy(out, c.records)
	return out
}
