package protocol

// Command ids for the binary envelope. Requests are 0x0001.., responses
// mirror them at 0x1001.., errors always go out as 0x9999.
const (
	CmdLoginReq        uint32 = 0x0001
	CmdLoginRsp        uint32 = 0x1001
	CmdRoomJoinReq     uint32 = 0x0002
	CmdRoomJoinRsp     uint32 = 0x1002
	CmdSnapshotReq     uint32 = 0x0003
	CmdSnapshotRsp     uint32 = 0x1003
	CmdBetPlacementReq uint32 = 0x0004
	CmdBetPlacementRsp uint32 = 0x1004
	CmdBetFinishedReq  uint32 = 0x0005
	CmdBetFinishedRsp  uint32 = 0x1005
	CmdReckonResultReq uint32 = 0x0006
	CmdReckonResultRsp uint32 = 0x1006
	CmdErrorRsp        uint32 = 0x9999
)

// Wire error codes carried in the 0x9999 envelope.
const (
	ErrCodeInvalidFormat       = 1000
	ErrCodeAuthRequired        = 1001
	ErrCodeInsufficientBalance = 1002
	ErrCodeInvalidRoom         = 1003
	ErrCodeInvalidBet          = 1004
	ErrCodeServerError         = 1005
	ErrCodeRateLimit           = 1006 // reserved, nothing emits it yet
)
