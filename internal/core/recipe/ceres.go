package recipe

import "github.com/nightconcept/nativepkg/internal/core/patch"

// Ceres returns the built-in ceres-solver recipe.
func Ceres() Recipe {
	return Recipe{
		Spec: PackageSpec{
			Name:        "ceres-solver",
			Version:     "1.14.0",
			License:     "BSD",
			Author:      "Mohamed G.A. Ghita (mohamed.ghita@radalytica.com)",
			URL:         "https://github.com/ceres-solver/ceres-solver",
			Description: "Package for ceres-solver, a library for modeling and solving large optimization problems",
			Topics:      []string{"ceres-solver", "optimization", "solver"},
		},
		Settings: DefaultSettings(),
		Options: OptionSet{
			Dependency: map[string]bool{"gflags:nothreads": false},
		},
		Dependencies: []Dependency{
			{Name: "eigen", Version: "3.3.7"},
			{Name: "glog", Version: "0.3.5"},
			{Name: "gflags", Version: "2.2.1"},
		},
		BuildTool: ">= 3.14.4",
		Patches:   ceresPatches(),
		Policy: map[string]string{
			"LAPACK": "OFF",
			// GPL-licensed sparse backends cannot be linked into a BSD package.
			"SUITESPARSE":                     "OFF",
			"CXSPARSE":                        "OFF",
			"EIGENSPARSE":                     "ON",
			"CXX11":                           "ON",
			"CXX11_THREADS":                   "ON",
			"CMAKE_POSITION_INDEPENDENT_CODE": "ON",
			"GFLAGS_NAMESPACE":                "gflags",
		},
		LibName:        "ceres",
		DebugSuffix:    "-debug",
		IncludeDirs:    []string{"include"},
		LibDirs:        []string{"lib"},
		LicensePattern: "license",
	}
}

func ceresPatches() []patch.Rule {
	return []patch.Rule{
		{
			// CMP0025 distinguishes AppleClang from Clang.
			Name:    "policy-cmp0025",
			Search:  "cmake_policy(VERSION 2.8)",
			Replace: "cmake_policy(VERSION 2.8)\ncmake_policy(SET CMP0025 NEW)\n",
			Unless:  "cmake_policy(SET CMP0025 NEW)",
			When:    patch.Always(),
		},
		{
			// find_package(Threads) cannot locate pthread.h on macOS.
			Name:   "macos-threads",
			Search: "find_package(Threads REQUIRED)",
			Replace: "set(CMAKE_THREAD_LIBS_INIT \"-lpthread\")\n" +
				"set(CMAKE_HAVE_THREADS_LIBRARY 1)\n" +
				"set(CMAKE_USE_WIN32_THREADS_INIT 0)\n" +
				"set(CMAKE_USE_PTHREADS_INIT 1)\n" +
				"set(THREADS_PREFER_PTHREAD_FLAG ON)",
			When: patch.HostOS("darwin"),
		},
		{
			// std::random_shuffle was removed in C++17.
			Name:    "cxx17-random-shuffle",
			File:    "internal/ceres/schur_eliminator_impl.h",
			Search:  "random_shuffle(chunks_.begin(), chunks_.end())",
			Replace: "",
			When:    patch.CompilerStd("17"),
		},
	}
}
