package yard

// Partition key = car id, so a single car's notifications usually stay in
// order. Consumers still must not rely on it.
func PartitionKey(carID string) []byte { return []byte(carID) }
