// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// MPU-6050 register map. Each output axis is a high byte at the listed
// address followed by the low byte at address+1.
const (
	RegSmplrtDiv   = 0x19
	RegConfig      = 0x1A
	RegGyroConfig  = 0x1B
	RegAccelConfig = 0x1C
	RegIntPinCfg   = 0x37
	RegIntEnable   = 0x38
	RegIntStatus   = 0x3A

	RegAccelXOutH = 0x3B
	RegAccelYOutH = 0x3D
	RegAccelZOutH = 0x3F
	RegTempOutH   = 0x41
	RegGyroXOutH  = 0x43
	RegGyroYOutH  = 0x45
	RegGyroZOutH  = 0x47

	RegUserCtrl   = 0x6A
	RegPowerMgmt1 = 0x6B
	RegPowerMgmt2 = 0x6C
	RegWhoAmI     = 0x75
)

const (
	// DefaultAddr is the device address with AD0 tied low (as shown by i2cdetect).
	DefaultAddr = 0x68
	// DefaultBus is the I²C bus name on Raspberry Pi revision 2 boards.
	DefaultBus = "1"

	// PowerMgmt1Sleep is the SLEEP bit of PWR_MGMT_1. The device powers up asleep.
	PowerMgmt1Sleep = 0x40
	// WhoAmIValue is the expected WHO_AM_I content.
	WhoAmIValue = 0x68
)

// BitField describes a field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo describes one device register for the register debug tool.
type RegisterInfo struct {
	Address     uint8
	Name        string
	Description string
	Access      string // "R", "W", "RW"
	Default     uint8
	BitFields   []BitField
}

// RegisterMap returns metadata for the MPU-6050 registers this module touches.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Configuration Registers
		{Address: RegSmplrtDiv, Name: "SMPLRT_DIV", Description: "Sample Rate Divider", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:0", Name: "SMPLRT_DIV", Description: "Sample Rate = Gyro_Output_Rate / (1 + SMPLRT_DIV)", Values: "0-255"},
			}},
		{Address: RegConfig, Name: "CONFIG", Description: "Configuration (DLPF)", Access: "RW",
			BitFields: []BitField{
				{Bits: "5:3", Name: "EXT_SYNC_SET", Description: "External FSYNC pin sampling", Values: "0=Disabled"},
				{Bits: "2:0", Name: "DLPF_CFG", Description: "Digital Low Pass Filter", Values: "0=260Hz, 1=184Hz, 2=94Hz, 3=44Hz, 4=21Hz, 5=10Hz, 6=5Hz"},
			}},
		{Address: RegGyroConfig, Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "XG_ST", Description: "X Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YG_ST", Description: "Y Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZG_ST", Description: "Z Gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "FS_SEL", Description: "Gyro Full Scale Range", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
			}},
		{Address: RegAccelConfig, Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "XA_ST", Description: "X Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YA_ST", Description: "Y Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZA_ST", Description: "Z Accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "AFS_SEL", Description: "Accel Full Scale Range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
			}},

		// Interrupt Configuration
		{Address: RegIntPinCfg, Name: "INT_PIN_CFG", Description: "INT Pin / Bypass Enable Configuration", Access: "RW",
			BitFields: []BitField{
				{Bits: "7", Name: "INT_LEVEL", Description: "INT pin active low", Values: "0=Active high, 1=Active low"},
				{Bits: "5", Name: "LATCH_INT_EN", Description: "Latch INT pin", Values: "0=50us pulse, 1=Latch until cleared"},
				{Bits: "1", Name: "I2C_BYPASS_EN", Description: "Auxiliary I2C bypass", Values: "0=Disabled, 1=Enabled"},
			}},
		{Address: RegIntEnable, Name: "INT_ENABLE", Description: "Interrupt Enable", Access: "RW",
			BitFields: []BitField{
				{Bits: "4", Name: "FIFO_OFLOW_EN", Description: "FIFO overflow interrupt", Values: "0=Disabled, 1=Enabled"},
				{Bits: "0", Name: "DATA_RDY_EN", Description: "Data ready interrupt", Values: "0=Disabled, 1=Enabled"},
			}},
		{Address: RegIntStatus, Name: "INT_STATUS", Description: "Interrupt Status", Access: "R"},

		// Sensor Data Registers (Read-Only)
		{Address: RegAccelXOutH, Name: "ACCEL_XOUT_H", Description: "Accelerometer X-Axis High Byte", Access: "R"},
		{Address: RegAccelXOutH + 1, Name: "ACCEL_XOUT_L", Description: "Accelerometer X-Axis Low Byte", Access: "R"},
		{Address: RegAccelYOutH, Name: "ACCEL_YOUT_H", Description: "Accelerometer Y-Axis High Byte", Access: "R"},
		{Address: RegAccelYOutH + 1, Name: "ACCEL_YOUT_L", Description: "Accelerometer Y-Axis Low Byte", Access: "R"},
		{Address: RegAccelZOutH, Name: "ACCEL_ZOUT_H", Description: "Accelerometer Z-Axis High Byte", Access: "R"},
		{Address: RegAccelZOutH + 1, Name: "ACCEL_ZOUT_L", Description: "Accelerometer Z-Axis Low Byte", Access: "R"},
		{Address: RegTempOutH, Name: "TEMP_OUT_H", Description: "Temperature High Byte", Access: "R"},
		{Address: RegTempOutH + 1, Name: "TEMP_OUT_L", Description: "Temperature Low Byte", Access: "R"},
		{Address: RegGyroXOutH, Name: "GYRO_XOUT_H", Description: "Gyroscope X-Axis High Byte", Access: "R"},
		{Address: RegGyroXOutH + 1, Name: "GYRO_XOUT_L", Description: "Gyroscope X-Axis Low Byte", Access: "R"},
		{Address: RegGyroYOutH, Name: "GYRO_YOUT_H", Description: "Gyroscope Y-Axis High Byte", Access: "R"},
		{Address: RegGyroYOutH + 1, Name: "GYRO_YOUT_L", Description: "Gyroscope Y-Axis Low Byte", Access: "R"},
		{Address: RegGyroZOutH, Name: "GYRO_ZOUT_H", Description: "Gyroscope Z-Axis High Byte", Access: "R"},
		{Address: RegGyroZOutH + 1, Name: "GYRO_ZOUT_L", Description: "Gyroscope Z-Axis Low Byte", Access: "R"},

		// Power Management
		{Address: RegUserCtrl, Name: "USER_CTRL", Description: "User Control", Access: "RW",
			BitFields: []BitField{
				{Bits: "6", Name: "FIFO_EN", Description: "Enable FIFO", Values: "0=Disabled, 1=Enabled"},
				{Bits: "2", Name: "FIFO_RESET", Description: "Reset FIFO", Values: "1=Reset"},
				{Bits: "0", Name: "SIG_COND_RESET", Description: "Reset signal paths", Values: "1=Reset"},
			}},
		{Address: RegPowerMgmt1, Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW", Default: PowerMgmt1Sleep,
			BitFields: []BitField{
				{Bits: "7", Name: "DEVICE_RESET", Description: "Reset all registers", Values: "1=Reset"},
				{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "0=Awake, 1=Sleep"},
				{Bits: "5", Name: "CYCLE", Description: "Cycle between sleep and sample", Values: "0=Disabled, 1=Enabled"},
				{Bits: "3", Name: "TEMP_DIS", Description: "Disable temperature sensor", Values: "0=Enabled, 1=Disabled"},
				{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=Internal 8MHz, 1=PLL X gyro, 2=PLL Y gyro, 3=PLL Z gyro"},
			}},
		{Address: RegPowerMgmt2, Name: "PWR_MGMT_2", Description: "Power Management 2", Access: "RW",
			BitFields: []BitField{
				{Bits: "7:6", Name: "LP_WAKE_CTRL", Description: "Low power wake-up frequency", Values: "0=1.25Hz, 1=5Hz, 2=20Hz, 3=40Hz"},
				{Bits: "5:0", Name: "STBY", Description: "Per-axis standby (XA YA ZA XG YG ZG)", Values: "1=Standby"},
			}},
		{Address: RegWhoAmI, Name: "WHO_AM_I", Description: "Device identity", Access: "R", Default: WhoAmIValue},
	}
}
