// Package backend is the request/response adapter for the device inventory
// REST service.
//
// Every operation is a JSON POST to {base}/api/Devices/{Op}:
//
//	GetAll  body {}            -> data: []Device
//	Create  body draft Device  -> data: canonical Device
//	Update  body full Device   -> success flag (data optional)
//	Delete  body {"id": "..."} -> success flag
//
// Responses use the envelope {isSuccessful, data, errorMessage}. The
// misspelled isSuccesful key that some deployments emit is accepted too.
//
// Every failure is returned as a *RequestFailure, matched with
// errors.Is(err, ErrRequestFailed). Calls are never retried.
//
// Usage:
//
//	client := backend.New(cfg.Backend.BaseURL, cfg.GetBackendTimeout())
//	devices, err := client.GetAll(ctx)
package backend
