package tools

import "context"

// AsyncCallback is handed to a tool via WithToolAsyncCB when it returns
// AsyncResult, letting it deliver its real result once work finishes
// instead of blocking the turn.
type AsyncCallback func(ctx context.Context, result *Result)
