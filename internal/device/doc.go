// Package device defines the inventory record, the peer event that carries
// mutations between clients, and the ordered in-memory collection that the
// synchronizer owns.
//
// # Types
//
//   - Device: one inventory record. ID is server-assigned; a Device with an
//     empty ID is a create draft and never enters a Collection.
//   - Event: tagged variant (added, updated, deleted) exchanged over the
//     notification channel. Validate it at the subscription boundary before
//     handing it to the synchronizer.
//   - Collection: ordered, ID-keyed set of Devices. Every method takes the
//     lock once, so each mutation is applied completely or not at all.
//
// # Validation
//
// ValidateDraft checks the fields a user must supply (name and serial
// number). ValidateRecord additionally requires an ID. Both return a
// *ValidationError listing every failing field; it matches ErrInvalidDevice
// under errors.Is.
//
// # Usage
//
//	c := device.NewCollection()
//	c.Replace(devices)
//	if inserted := c.Upsert(d); inserted {
//	    log.Info("device appeared", "id", d.ID)
//	}
//	for _, d := range c.Snapshot() {
//	    fmt.Println(d.Name)
//	}
package device
