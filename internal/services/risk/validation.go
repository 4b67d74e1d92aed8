package risk

import (
	"fmt"

	"orus-risk/internal/utils/validation"
)

// Descriptor limits
const (
	MaxActorIDLength     = 128
	MaxFingerprintLength = 512
	MaxItems             = 500
)

// ValidateDescriptor checks every field of desc against actorID and returns
// an *InvalidDescriptorError listing all problems, or nil.
func ValidateDescriptor(actorID string, desc TransactionDescriptor) error {
	v := validation.New()

	v.Required(actorID, "actor_id")
	v.MaxLength(actorID, MaxActorIDLength, "actor_id")
	if desc.ActorID != "" && desc.ActorID != actorID {
		v.AddError("actor_id", "does not match the descriptor's actor")
	}

	v.Check(desc.Amount > 0, "amount", "must be greater than zero")
	v.Check(desc.PaymentMethod.Valid(), "payment_method", fmt.Sprintf("unsupported payment method %q", desc.PaymentMethod))
	v.IP(desc.IPAddress, "ip_address")
	v.MaxLength(desc.DeviceFingerprint, MaxFingerprintLength, "device_fingerprint")

	v.Check(len(desc.Items) <= MaxItems, "items", fmt.Sprintf("must contain at most %d items", MaxItems))
	for i, it := range desc.Items {
		field := fmt.Sprintf("items[%d]", i)
		v.Check(it.Quantity > 0, field+".quantity", "must be greater than zero")
		v.Check(it.Value >= 0, field+".value", "must not be negative")
		if it.Weight != nil {
			v.Check(*it.Weight >= 0, field+".weight", "must not be negative")
		}
	}

	if !v.Valid() {
		return &InvalidDescriptorError{Errors: v.Errors}
	}
	return nil
}
