package ps2

// Reserved response bytes shared by the keyboard and mouse protocols. The
// same value is reinterpreted depending on which command is outstanding:
// 0x00 is a buffer overrun after a keyboard command but a legitimate data
// byte elsewhere, so classification happens in the protocol layers where
// the outstanding command is known, never at the transport layer.
const (
	responseBufferOverrun  = 0x00
	responseSelfTestPassed = 0xaa
	responseEcho           = 0xee
	responseAck            = 0xfa
	responseSelfTestFailed = 0xfc
	responseResend         = 0xfe
	responseKeyDetection   = 0xff
)
