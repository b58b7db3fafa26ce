package common

// Movement speed references, km/h.
// The detector reports derived speed in km/h, so these are too.

const SpeedOfWalkingKmH = 4.3   // or 1.2 m/s or 2.7 mph
const SpeedOfRunningKmH = 12.0  // or 3.35 m/s or 7.5 mph
const SpeedOfCyclingKmH = 19.3  // or 5.36 m/s or 12 mph
const SpeedOfDrivingCityKmH = 50.0
const SpeedOfDrivingHighwayKmH = 91.0  // or 56 mph
const SpeedOfDrivingFreewayKmH = 120.0 // or 75 mph
const SpeedOfCommercialFlightKmH = 900.0
