// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text


package sensors

// MPU-9250 register addresses used by the driver. Names follow the
// datasheet.
const (
	regSmplrtDiv    = 0x19 // Sample Rate = Internal_Sample_Rate / (1 + SMPLRT_DIV)
	regConfig       = 0x1A // DLPF_CFG in bits 2:0
	regGyroConfig   = 0x1B // GYRO_FS_SEL in bits 4:3
	regAccelConfig  = 0x1C // ACCEL_FS_SEL in bits 4:3
	regAccelConfig2 = 0x1D // A_DLPFCFG in bits 2:0
	regIntEnable    = 0x38 // RAW_RDY_EN in bit 0
	regIntStatus    = 0x3A // cleared by reading
	regAccelXoutH   = 0x3B // start of the 14-byte accel/temp/gyro burst
	regGyroXoutH    = 0x43
	regPwrMgmt1     = 0x6B
	regWhoAmI       = 0x75
)

const (
	whoAmIMPU9250 = 0x71
	whoAmIMPU9255 = 0x73

	pwrReset      = 0x80
	pwrClkselAuto = 0x01 // auto-select best clock source (PLL when ready)

	intEnableRawRdy = 0x01
	intRawDataReady = 0x01

	// Read transactions set the MSB of the register address.
	spiReadFlag = 0x80
)
