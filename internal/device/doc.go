// Package device models the BLE sensor devices a hub knows about and converts
// them to and from their wire form.
//
// Two devices are the same device when their addresses match. Names and sensor
// readings are carried along but never take part in identity.
package device
