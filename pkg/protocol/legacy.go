package protocol

// Legacy method/event names kept for managed-mode surfaces that predate
// the method families above (channel instance CRUD, the Zalo Personal QR
// login bridge, HTTP admin endpoints). These are not part of the core
// wire protocol; they're additional managed-mode methods layered on top
// via the same MethodRouter.
const (
	EventChat           = "chat"
	EventShutdown       = "shutdown"
	EventAgentSummoning = "agent.summoning"

	EventZaloPersonalQRCode = "zalo.personal.qr.code"
	EventZaloPersonalQRDone = "zalo.personal.qr.done"

	MethodConnect  = "connect"
	MethodChatSend = "chat.send"

	MethodZaloPersonalQRStart  = "zalo.personal.qr.start"
	MethodZaloPersonalContacts = "zalo.personal.contacts"

	MethodChannelInstancesList   = "channels.instances.list"
	MethodChannelInstancesGet    = "channels.instances.get"
	MethodChannelInstancesCreate = "channels.instances.create"
	MethodChannelInstancesUpdate = "channels.instances.update"
	MethodChannelInstancesDelete = "channels.instances.delete"
)
