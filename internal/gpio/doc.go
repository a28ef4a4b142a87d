// Package gpio binds the track hardware to the event loop.
//
// A Chip hands out input watches and outputs by line offset. Two input
// adapters turn raw levels into engine events:
//
//	Button  level 1 -> closed, level 0 -> opened, held after HoldTime
//	Sensor  every level change -> changed(level)
//
// LED drives an output line and implements race.Indicator.
//
// On Linux the chip is the GPIO character device (gpiocdev). FakeChip
// stands in for it in tests and when the configured chip is "fake".
package gpio
