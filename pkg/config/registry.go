package config

// Persistent state keys (Registry)
const (
	KeyMasterVolume     = "master_volume"
	KeyFadeDuration     = "fade_duration"
	KeyTransitionBuffer = "transition_buffer"
	KeyActiveVehicle    = "active_vehicle"
	KeyEffectReverb     = "effect_reverb"
	KeyEffectDelay      = "effect_delay"
	KeyEffectCompress   = "effect_compression"
	KeySimSource        = "sim_source"

	// KeyZoneVolumePrefix is followed by the zone name, e.g. "zone_volume_cabin".
	KeyZoneVolumePrefix = "zone_volume_"
)

// ZoneVolumeKey returns the state key holding the base volume override of zone.
func ZoneVolumeKey(zone string) string {
	return KeyZoneVolumePrefix + zone
}
