package proto

// ExecuteRequest is worker.Execute's request message (§6).
type ExecuteRequest struct {
	Action   string            `json:"action"`
	Body     []byte            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExecuteResponse is worker.Execute's response message: exactly one of
// Body (success) or Problem is set.
type ExecuteResponse struct {
	Body    []byte       `json:"body,omitempty"`
	Problem *ProblemBody `json:"problem,omitempty"`
}

// ProblemBody mirrors types.Problem on the wire.
type ProblemBody struct {
	Type       string            `json:"type"`
	Detail     string            `json:"detail"`
	Instance   string            `json:"instance"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// GetDigestByNameRequest is control-plane.GetDigestByName's request.
type GetDigestByNameRequest struct {
	Key string `json:"key"`
}

// GetDigestByNameResponse carries the resolved digest, or Found=false
// when the control plane has no mapping for the requested key.
type GetDigestByNameResponse struct {
	Digest string `json:"digest"`
	Found  bool   `json:"found"`
}

// SetDigestToNameRequest is control-plane.SetDigestToName's request.
// The worker never calls this RPC; it is defined for completeness of
// the mapping contract and so a control-plane fake can implement it.
type SetDigestToNameRequest struct {
	Key    string `json:"key"`
	Digest string `json:"digest"`
}

// SetDigestToNameResponse is control-plane.SetDigestToName's response.
type SetDigestToNameResponse struct{}

// PullRequest is registry.Pull's request.
type PullRequest struct {
	Digest string `json:"digest"`
}

// PullChunk is one streamed frame of registry.Pull's response.
type PullChunk struct {
	Data []byte `json:"data"`
}
