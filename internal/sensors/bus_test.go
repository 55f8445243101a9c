package sensors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/relabs-tech/flight_gyro/internal/imu"
)

// readOp is the transaction produced by one register read.
func readOp(reg, value byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddr, W: []byte{reg}, R: []byte{value}}
}

// wordOps is the pair of reads ReadWord2C issues for one axis.
func wordOps(reg byte, value int16) []i2ctest.IO {
	w := uint16(value)
	return []i2ctest.IO{readOp(reg, byte(w>>8)), readOp(reg+1, byte(w))}
}

func TestI2CBusTransactions(t *testing.T) {
	t.Parallel()

	t.Run("wake writes zero to PWR_MGMT_1", func(t *testing.T) {
		t.Parallel()
		pb := &i2ctest.Playback{Ops: []i2ctest.IO{
			{Addr: DefaultAddr, W: []byte{RegPowerMgmt1, 0x00}},
		}}
		bus := NewI2CBus(pb, DefaultAddr)
		require.NoError(t, Wake(bus))
		require.NoError(t, pb.Close())
	})

	t.Run("who am i", func(t *testing.T) {
		t.Parallel()
		pb := &i2ctest.Playback{Ops: []i2ctest.IO{readOp(RegWhoAmI, WhoAmIValue)}}
		id, err := WhoAmI(NewI2CBus(pb, DefaultAddr))
		require.NoError(t, err)
		assert.Equal(t, uint8(WhoAmIValue), id)
		require.NoError(t, pb.Close())
	})

	t.Run("read raw sample in accel then gyro order", func(t *testing.T) {
		t.Parallel()
		var ops []i2ctest.IO
		ops = append(ops, wordOps(RegAccelXOutH, 16384)...)
		ops = append(ops, wordOps(RegAccelYOutH, -16384)...)
		ops = append(ops, wordOps(RegAccelZOutH, 0)...)
		ops = append(ops, wordOps(RegGyroXOutH, 131)...)
		ops = append(ops, wordOps(RegGyroYOutH, -1)...)
		ops = append(ops, wordOps(RegGyroZOutH, -32768)...)
		pb := &i2ctest.Playback{Ops: ops}

		raw, err := ReadRaw(NewI2CBus(pb, DefaultAddr))
		require.NoError(t, err)
		assert.Equal(t, imu.RawSample{Ax: 16384, Ay: -16384, Az: 0, Gx: 131, Gy: -1, Gz: -32768}, raw)
		require.NoError(t, pb.Close())
	})

	t.Run("transport failure becomes a BusError", func(t *testing.T) {
		t.Parallel()
		// The playback expects a different register, so the read fails.
		pb := &i2ctest.Playback{Ops: []i2ctest.IO{readOp(RegWhoAmI, 0)}, DontPanic: true}
		_, err := ReadRaw(NewI2CBus(pb, DefaultAddr))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBus))

		var be *BusError
		require.True(t, errors.As(err, &be))
		assert.Equal(t, "read", be.Op)
		assert.Equal(t, uint8(RegAccelXOutH), be.Reg)
		assert.Contains(t, err.Error(), "accel X")
	})
}

func TestI2CBusCloseWithoutOwnership(t *testing.T) {
	t.Parallel()
	pb := &i2ctest.Playback{}
	bus := NewI2CBus(pb, DefaultAddr)
	assert.NoError(t, bus.Close())
	assert.NoError(t, bus.Close())
}

func TestReadRegisters(t *testing.T) {
	t.Parallel()
	sim := NewSimBus()
	regs, err := ReadAllRegisters(sim)
	require.NoError(t, err)
	assert.Len(t, regs, len(RegisterMap()))
	assert.Equal(t, uint8(WhoAmIValue), regs[RegWhoAmI])
	assert.Equal(t, uint8(PowerMgmt1Sleep), regs[RegPowerMgmt1])
}
