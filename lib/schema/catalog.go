package schema

import "github.com/ValentinKolb/dReshard/lib/dtype"

// Attribute and field catalogs of the snapshot format. Names are listed in
// the order they are written.

var headerAttrs = []string{
	"BoxSize", "Composition_vector_length", "Flag_Cooling", "Flag_DoublePrecision",
	"Flag_Feedback", "Flag_Metals", "Flag_Sfr", "Flag_StellarAge", "Git_commit", "Git_date",
	"HubbleParam", "MassTable", "NumFilesPerSnapshot", "NumPart_ThisFile", "NumPart_Total",
	"NumPart_Total_HighWord", "Omega0", "OmegaBaryon", "OmegaLambda", "Redshift", "Time",
	"UnitLength_in_cm", "UnitMass_in_g", "UnitVelocity_in_cm_per_s",
}

var configBaseAttrs = []string{
	"ALLOW_DIRECT_SUMMATION", "CHUNKING", "DEBUG", "DIRECT_SUMMATION_THRESHOLD",
	"DOUBLEPRECISION", "DOUBLEPRECISION_FFTW", "ENLARGE_DYNAMIC_RANGE_IN_TIME", "EVALPOTENTIAL",
	"FOF", "FOF_PRIMARY_LINK_TYPES", "FOF_SECONDARY_LINK_TYPES", "HAVE_HDF5",
	"HIERARCHICAL_GRAVITY", "HOST_MEMORY_REPORTING", "LONGIDS", "NGB_TREE_DOUBLEPRECISION",
	"NSOFTTYPES", "NTYPES", "OUTPUTPOTENTIAL", "OUTPUT_CENTER_OF_MASS",
	"OUTPUT_COORDINATES_IN_DOUBLEPRECISION", "OUTPUT_CPU_CSV", "PERIODIC", "PMGRID",
	"PROCESS_TIMES_OF_OUTPUTLIST", "RCUT", "REDUCE_FLUSH", "SAVE_HSML_IN_SNAPSHOT", "SELFGRAVITY",
	"SUBFIND", "SUBFIND_CALC_MORE", "TREE_BASED_TIMESTEPS", "VORONOI_DYNAMIC_UPDATE",
}

var configLargeAttrs = []string{
	"RUNNING_SAFETY_FILE",
}

var configNonDarkAttrs = []string{
	"ADAPTIVE_HYDRO_SOFTENING", "BH_ADIOS_ONLY_ABOVE_MINIMUM_DENSITY", "BH_ADIOS_RANDOMIZED",
	"BH_ADIOS_WIND", "BH_ADIOS_WIND_WITH_QUASARTHRESHOLD",
	"BH_ADIOS_WIND_WITH_VARIABLE_QUASARTHRESHOLD", "BH_BONDI_DEFAULT",
	"BH_DO_NOT_PREVENT_MERGERS", "BH_EXACT_INTEGRATION", "BH_NEW_CENTERING",
	"BH_PRESSURE_CRITERION", "BH_THERMALFEEDBACK", "BH_USE_ALFVEN_SPEED_IN_BONDI", "BLACK_HOLES",
	"CELL_CENTER_GRAVITY", "COOLING", "DRAINGAS", "ENFORCE_JEANS_STABILITY_OF_CELLS",
	"ENFORCE_JEANS_STABILITY_OF_CELLS_EEOS", "GENERATE_GAS_IN_ICS", "GENERATE_TRACER_MC_IN_ICS",
	"GFM", "GFM_AGN_RADIATION", "GFM_CHEMTAGS", "GFM_CONST_IMF", "GFM_COOLING_METAL",
	"GFM_DISCRETE_ENRICHMENT", "GFM_NORMALIZED_METAL_ADVECTION", "GFM_OUTPUT_BIRTH_POS",
	"GFM_OUTPUT_MASK", "GFM_PREENRICH", "GFM_RPROCESS", "GFM_SPLITFE", "GFM_STELLAR_EVOLUTION",
	"GFM_STELLAR_PHOTOMETRICS", "GFM_WINDS", "GFM_WINDS_STRIPPING", "GFM_WINDS_THERMAL_NEWDEF",
	"GFM_WINDS_VARIABLE", "GFM_WINDS_VARIABLE_HUBBLE", "GFM_WIND_ENERGY_METAL_DEPENDENCE",
	"INDIVIDUAL_GRAVITY_SOFTENING", "MHD", "MHD_POWELL", "MHD_POWELL_LIMIT_TIMESTEP",
	"MHD_SEEDFIELD", "MULTIPLE_NODE_SOFTENING", "REFINEMENT_MERGE_CELLS",
	"REFINEMENT_SPLIT_CELLS", "REGULARIZE_MESH_CM_DRIFT",
	"REGULARIZE_MESH_CM_DRIFT_USE_SOUNDSPEED", "REGULARIZE_MESH_FACE_ANGLE", "RIEMANN_HLLD",
	"SHOCK_FINDER_BEFORE_OUTPUT", "SOFTEREQS", "SPLIT_PARTICLE_TYPE", "SUBBOX_SNAPSHOTS",
	"TRACER_MC", "TRACER_MC_NUM_FLUID_QUANTITIES", "TRACER_MC_STORE_WHAT", "USE_SFR",
	"UVB_SELF_SHIELDING", "VORONOI",
}

var configNonDarkLargeAttrs = []string{
	"CHECKSUM_DEBUG", "HUGEPAGES",
}

var paramOptionalAttrs = []string{
	"CellShapingFactor",
}

var paramBaseAttrs = []string{
	"ActivePartFracForNewDomainDecomp", "BoxSize", "CellShapingSpeed", "ComovingIntegrationOn",
	"CoolingOn", "CourantFac", "CpuTimeBetRestartFile", "DesLinkNgb", "DesNumNgb",
	"ErrTolForceAcc", "ErrTolIntAccuracy", "ErrTolTheta", "ErrTolThetaSubfind",
	"FlushCpuTimeDiff", "GasSoftFactor", "GravityConstantInternal", "HubbleParam", "ICFormat",
	"InitCondFile", "InitGasTemp", "LimitUBelowCertainDensityToThisValue",
	"LimitUBelowThisDensity", "MaxMemSize", "MaxNumNgbDeviation", "MaxSizeTimestep", "MinEgySpec",
	"MinGasTemp", "MinSizeTimestep", "MinimumDensityOnStartUp", "MultipleDomains",
	"NumFilesPerSnapshot", "NumFilesWrittenInParallel", "Omega0", "OmegaBaryon", "OmegaLambda",
	"OutputDir", "OutputListFilename", "OutputListOn", "PeriodicBoundariesOn", "ResubmitCommand",
	"ResubmitOn", "SnapFormat", "SnapshotFileBase", "SofteningComovingType0",
	"SofteningComovingType1", "SofteningComovingType2", "SofteningComovingType3",
	"SofteningMaxPhysType0", "SofteningMaxPhysType1", "SofteningMaxPhysType2",
	"SofteningMaxPhysType3", "SofteningTypeOfPartType0", "SofteningTypeOfPartType1",
	"SofteningTypeOfPartType2", "SofteningTypeOfPartType3", "SofteningTypeOfPartType4",
	"SofteningTypeOfPartType5", "StarformationOn", "TimeBegin", "TimeBetSnapshot",
	"TimeBetStatistics", "TimeLimitCPU", "TimeMax", "TimeOfFirstSnapshot", "TopNodeFactor",
	"TypeOfOpeningCriterion", "TypeOfTimestepCriterion", "UnitLength_in_cm", "UnitMass_in_g",
	"UnitVelocity_in_cm_per_s",
}

var paramExt1Attrs = []string{
	"SofteningComovingType4", "SofteningMaxPhysType4",
}

var paramExt2Attrs = []string{
	"SofteningComovingType5", "SofteningMaxPhysType5",
}

var paramNonDarkAttrs = []string{
	"AGB_MassTransferOn", "AdaptiveHydroSofteningSpacing", "BlackHoleAccretionFactor",
	"BlackHoleCenteringMassMultiplier", "BlackHoleEddingtonFactor", "BlackHoleFeedbackFactor",
	"BlackHoleMaxAccretionRadius", "BlackHoleRadiativeEfficiency", "CellMaxAngleFactor",
	"CoolingTablePath", "CritOverDensity", "CritPhysDensity", "DerefinementCriterion",
	"DesNumNgbBlackHole", "DesNumNgbEnrichment", "FactorEVP", "FactorForSofterEQS",
	"IMF_MaxMass_Msun", "IMF_MinMass_Msun", "MHDSeedDir", "MHDSeedValue",
	"MaxNumNgbDeviationEnrichment", "MaxSfrTimescale", "MinFoFMassForNewSeed", "MinMetalTemp",
	"MinWindVel", "MinimumComovingHydroSoftening", "NSNS_MassPerEvent", "NSNS_MassTransferOn",
	"NSNS_Rate_TAU", "NSNS_per_SNIa", "ObscurationFactor", "ObscurationSlope",
	"PhotometricsTablePath", "PreEnrichAbundanceFile", "PreEnrichTime", "QuasarThreshold",
	"RadioFeedbackFactor", "RadioFeedbackMinDensityFactor", "RadioFeedbackReiorientationFactor",
	"ReferenceGasPartMass", "RefinementCriterion", "SNII_MassTransferOn", "SNII_MaxMass_Msun",
	"SNII_MinMass_Msun", "SNIa_MassTransferOn", "SNIa_Rate_Norm", "SNIa_Rate_TAU",
	"SeedBlackHoleMass", "SelfShieldingDensity", "SelfShieldingFile", "SubboxCoordinatesPath",
	"SubboxMaxTime", "SubboxMinTime", "SubboxNumFilesPerSnapshot", "SubboxSyncModulo",
	"SubbxNumFilesWrittenInParallel", "TargetGasMassFactor", "TempClouds", "TempForSofterEQS",
	"TempSupernova", "TemperatureThresh", "ThermalWindFraction", "TimeBetOnTheFlyFoF",
	"TracerMCPerCell", "TreecoolFile", "TreecoolFileAGN", "VariableWindSpecMomentum",
	"VariableWindVelFactor", "WindDumpFactor", "WindEnergyIn1e51erg",
	"WindEnergyReductionExponent", "WindEnergyReductionFactor", "WindEnergyReductionMetallicity",
	"WindFreeTravelDensFac", "WindFreeTravelMaxTimeFactor", "YieldTablePath",
}

var partType0Fields = []FieldSpec{
	{Name: "CenterOfMass", Kind: dtype.Float32, Scaled: true},
	{Name: "Coordinates", Kind: dtype.Float64, Scaled: true},
	{Name: "Density", Kind: dtype.Float32, Scaled: true},
	{Name: "ElectronAbundance", Kind: dtype.Float32, Scaled: true},
	{Name: "EnergyDissipation", Kind: dtype.Float32},
	{Name: "GFM_AGNRadiation", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_CoolingRate", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_Metallicity", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_Metals", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_MetalsTagged", Kind: dtype.Float32},
	{Name: "GFM_WindDMVelDisp", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_WindHostHaloMass", Kind: dtype.Float32, Scaled: true},
	{Name: "InternalEnergy", Kind: dtype.Float32, Scaled: true},
	{Name: "InternalEnergyOld", Kind: dtype.Float32},
	{Name: "Machnumber", Kind: dtype.Float32},
	{Name: "MagneticField", Kind: dtype.Float32},
	{Name: "MagneticFieldDivergence", Kind: dtype.Float32},
	{Name: "Masses", Kind: dtype.Float32, Scaled: true},
	{Name: "NeutralHydrogenAbundance", Kind: dtype.Float32, Scaled: true},
	{Name: "ParticleIDs", Kind: dtype.Uint64, Scaled: true},
	{Name: "Potential", Kind: dtype.Float32, Scaled: true},
	{Name: "StarFormationRate", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDMDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindHsml", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindVelDisp", Kind: dtype.Float32, Scaled: true},
	{Name: "Velocities", Kind: dtype.Float32, Scaled: true},
}

var partType1Fields = []FieldSpec{
	{Name: "Coordinates", Kind: dtype.Float64, Scaled: true},
	{Name: "Velocities", Kind: dtype.Float32, Scaled: true},
	{Name: "ParticleIDs", Kind: dtype.Uint64, Scaled: true},
	{Name: "Potential", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDMDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindHsml", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindVelDisp", Kind: dtype.Float32, Scaled: true},
}

var partType3Fields = []FieldSpec{
	{Name: "FluidQuantities", Kind: dtype.Float32},
	{Name: "ParentID", Kind: dtype.Uint64},
	{Name: "TracerID", Kind: dtype.Uint64},
}

var partType4Fields = []FieldSpec{
	{Name: "BirthPos", Kind: dtype.Float32, Scaled: true},
	{Name: "BirthVel", Kind: dtype.Float32, Scaled: true},
	{Name: "Coordinates", Kind: dtype.Float64, Scaled: true},
	{Name: "GFM_InitialMass", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_Metallicity", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_Metals", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_MetalsTagged", Kind: dtype.Float32},
	{Name: "GFM_StellarFormationTime", Kind: dtype.Float32, Scaled: true},
	{Name: "GFM_StellarPhotometrics", Kind: dtype.Float32, Scaled: true},
	{Name: "Masses", Kind: dtype.Float32, Scaled: true},
	{Name: "ParticleIDs", Kind: dtype.Uint64, Scaled: true},
	{Name: "Potential", Kind: dtype.Float32, Scaled: true},
	{Name: "StellarHsml", Kind: dtype.Float32},
	{Name: "SubfindDMDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindHsml", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindVelDisp", Kind: dtype.Float32, Scaled: true},
	{Name: "Velocities", Kind: dtype.Float32, Scaled: true},
}

var partType5Fields = []FieldSpec{
	{Name: "BH_BPressure", Kind: dtype.Float32},
	{Name: "BH_CumEgyInjection_QM", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_CumEgyInjection_RM", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_CumMassGrowth_QM", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_CumMassGrowth_RM", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_Density", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_HostHaloMass", Kind: dtype.Float32},
	{Name: "BH_Hsml", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_Mass", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_Mdot", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_MdotBondi", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_MdotEddington", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_Pressure", Kind: dtype.Float32, Scaled: true},
	{Name: "BH_Progs", Kind: dtype.Uint32, Scaled: true},
	{Name: "BH_U", Kind: dtype.Float32, Scaled: true},
	{Name: "Coordinates", Kind: dtype.Float64, Scaled: true},
	{Name: "Masses", Kind: dtype.Float32, Scaled: true},
	{Name: "ParticleIDs", Kind: dtype.Uint64, Scaled: true},
	{Name: "Potential", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDMDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindDensity", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindHsml", Kind: dtype.Float32, Scaled: true},
	{Name: "SubfindVelDisp", Kind: dtype.Float32, Scaled: true},
	{Name: "Velocities", Kind: dtype.Float32, Scaled: true},
}

